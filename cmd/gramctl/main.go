// gramctl is a headless front-end for the LG Gram feature switches. It reads
// settings directly from the driver and applies changes through the
// privileged writer, the same way the graphical settings panel does.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/gram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	capitan.Shutdown()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg    gram.Config
	logger *slog.Logger
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		verbose    bool
		jsonLogs   bool
	)

	flagSet := pflag.NewFlagSet("gramctl", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", gram.DefaultConfigPath, "configuration file")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log controller events")
	flagSet.BoolVar(&jsonLogs, "log-json", false, "log as JSON instead of text")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		printHelp(stderr)
		return fmt.Errorf("%w: %v", gram.ErrUsage, err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr)
		return fmt.Errorf("%w: missing command", gram.ErrUsage)
	}

	cfg, err := gram.LoadConfig(configPath, gram.CodecFor(configPath))
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(stderr, options)
	if jsonLogs {
		handler = slog.NewJSONHandler(stderr, options)
	}
	logger := slog.New(handler)
	if verbose {
		hookEvents(logger)
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout}

	command, params := rest[0], rest[1:]
	switch command {
	case "list":
		return a.list(ctx, params)
	case "get":
		return a.get(ctx, params)
	case "set":
		return a.set(ctx, params)
	case "persist":
		return a.persist(ctx, params)
	case "info":
		return a.info(ctx, params)
	case "watch":
		return a.watch(ctx, params)
	case "help":
		printHelp(stdout)
		return nil
	default:
		printHelp(stderr)
		return fmt.Errorf("%w: unknown command %q", gram.ErrUsage, command)
	}
}

// hookEvents mirrors controller events into the log.
func hookEvents(logger *slog.Logger) {
	capitan.Hook(gram.ControllerStateChanged, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		from, _ := gram.KeyOldState.From(e)
		to, _ := gram.KeyNewState.From(e)
		logger.Debug("state changed", "setting", id, "from", from, "to", to)
	})
	capitan.Hook(gram.ApplyRequested, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		value, _ := gram.KeyValue.From(e)
		logger.Info("apply requested", "setting", id, "value", value)
	})
	capitan.Hook(gram.ApplySucceeded, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		msg, _ := gram.KeyMessage.From(e)
		took, _ := gram.KeyDuration.From(e)
		logger.Info("apply succeeded", "setting", id, "message", msg, "took", took)
	})
	capitan.Hook(gram.ApplyFailed, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		msg, _ := gram.KeyError.From(e)
		logger.Warn("apply failed", "setting", id, "error", msg)
	})
	capitan.Hook(gram.ControlReverted, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		value, _ := gram.KeyValue.From(e)
		logger.Debug("control restored", "setting", id, "value", value)
	})
	capitan.Hook(gram.ControllerRefreshed, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		value, _ := gram.KeyValue.From(e)
		logger.Info("external change", "setting", id, "value", value)
	})
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `gramctl controls the LG Gram platform features.

Usage:
  gramctl [--config FILE] [-v] <command> [arguments]

Commands:
  list                                    show every setting and its value
  get <setting>                           show one setting
  set <setting> <value|label> [--persist|--no-persist]
                                          change a setting
  persist <setting> on|off                keep the current value across reboots
  info [--local]                          show vendor, product and BIOS details
  watch <setting>                         follow external changes until interrupted;
                                          SIGHUP forces a re-read

Settings:
`)
	for _, s := range gram.Settings() {
		fmt.Fprintf(w, "  %-20s %s\n", s.ID, s.Title)
	}
}
