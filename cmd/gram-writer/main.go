// gram-writer is the privileged half of lg-gram-settings. It is invoked
// through pkexec by the unprivileged front-end and is the only program that
// writes the lg-laptop attributes or toggles their companion units.
//
// Exactly one line is printed: a confirmation on stdout (exit 0) or an
// "ERROR:" diagnostic on stderr (exit 1).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zoobzio/capitan"
	"golang.org/x/sys/unix"

	"github.com/zoobzio/gram"
)

// environment carries the process-level collaborators so tests can run the
// writer unprivileged against a temporary feature tree. The caller of a
// pkexec'd binary is untrusted, so the config location is never a flag.
type environment struct {
	euid     func() int
	config   func() (gram.Config, error)
	services gram.ServiceManager
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, environment{
		euid: unix.Geteuid,
		config: func() (gram.Config, error) {
			return gram.LoadTrustedConfig(gram.DefaultConfigPath, gram.YAMLCodec{})
		},
	}))
}

func run(args []string, stdout, stderr io.Writer, env environment) int {
	// Refuse before looking at anything else.
	if env.euid() != 0 {
		fail(stderr, gram.ErrNotPrivileged)
		return 1
	}

	var (
		feature    bool
		kernel     bool
		service    bool
		systemInfo bool
		persist    bool
		noPersist  bool
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("gram-writer", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&feature, "feature", false, "set a feature and carry its persistence over to the new value")
	flagSet.BoolVar(&kernel, "kernel", false, "set a feature without touching companion units")
	flagSet.BoolVar(&service, "service", false, "enable (1) or disable (0) the companion unit for the current value")
	flagSet.BoolVar(&systemInfo, "system-info", false, "print vendor, product, serial and BIOS identifiers")
	flagSet.BoolVar(&persist, "persist", false, "with --feature: enable the companion unit for the new value")
	flagSet.BoolVar(&noPersist, "no-persist", false, "with --feature: disable every companion unit of the setting")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log each step to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		fail(stderr, fmt.Errorf("%w: %v", gram.ErrUsage, err))
		printUsage(stderr)
		return 1
	}
	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stdout)
		return 0
	}

	modes := 0
	for _, on := range []bool{feature, kernel, service, systemInfo} {
		if on {
			modes++
		}
	}
	positional := flagSet.Args()
	switch {
	case modes != 1:
		return usageError(stderr, "exactly one of --feature, --kernel, --service, --system-info is required")
	case systemInfo && len(positional) != 0:
		return usageError(stderr, "--system-info takes no arguments")
	case !systemInfo && len(positional) != 1:
		return usageError(stderr, "expected a single <setting>=<value> argument")
	case (persist || noPersist) && !feature:
		return usageError(stderr, "--persist and --no-persist only apply to --feature")
	case persist && noPersist:
		return usageError(stderr, "--persist and --no-persist are mutually exclusive")
	}

	cfg, err := env.config()
	if err != nil {
		fail(stderr, err)
		return 1
	}

	if verbose {
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		hookWriterEvents(logger)
		defer capitan.Shutdown()
	}

	companions := cfg.Companions()
	if env.services != nil {
		companions.Manager = env.services
	}
	writer := gram.NewWriter(cfg.Store(), companions).
		DMIPath(cfg.DMIPath).
		EUID(env.euid)

	if systemInfo {
		fmt.Fprint(stdout, writer.SystemInfo())
		return 0
	}

	ctx := context.Background()
	msg, err := dispatch(ctx, writer, positional[0], feature, kernel, persist, noPersist)
	if err != nil {
		fail(stderr, err)
		if errors.Is(err, gram.ErrUsage) {
			printUsage(stderr)
		}
		return 1
	}

	fmt.Fprintln(stdout, msg)
	return 0
}

func dispatch(ctx context.Context, writer *gram.Writer, arg string, feature, kernel, persist, noPersist bool) (string, error) {
	id, value, ok := strings.Cut(arg, "=")
	if !ok {
		return "", fmt.Errorf("%w: expected <setting>=<value>, got %q", gram.ErrUsage, arg)
	}

	switch {
	case feature:
		req := gram.Request{ID: id, Value: value}
		if persist {
			req.Persist = gram.PersistEnable
		} else if noPersist {
			req.Persist = gram.PersistDisable
		}
		return writer.Apply(ctx, req)

	case kernel:
		return writer.WriteOnly(ctx, id, value)

	default:
		switch value {
		case "0", "1":
			return writer.SetPersistent(ctx, id, value == "1")
		default:
			return "", fmt.Errorf("%w: %s service state must be 0 or 1, got %q", gram.ErrInvalidValue, id, value)
		}
	}
}

func hookWriterEvents(logger *slog.Logger) {
	capitan.Hook(gram.WriterRejected, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		msg, _ := gram.KeyError.From(e)
		logger.Warn("request rejected", "setting", id, "error", msg)
	})
	capitan.Hook(gram.WriterUnitDisabled, func(_ context.Context, e *capitan.Event) {
		unit, _ := gram.KeyUnit.From(e)
		logger.Debug("unit disabled", "unit", unit)
	})
	capitan.Hook(gram.WriterAttributeWritten, func(_ context.Context, e *capitan.Event) {
		id, _ := gram.KeySetting.From(e)
		value, _ := gram.KeyValue.From(e)
		logger.Debug("attribute written", "setting", id, "value", value)
	})
	capitan.Hook(gram.WriterUnitEnabled, func(_ context.Context, e *capitan.Event) {
		unit, _ := gram.KeyUnit.From(e)
		logger.Debug("unit enabled", "unit", unit)
	})
}

func fail(w io.Writer, err error) {
	fmt.Fprintf(w, "ERROR: %v\n", err)
}

func usageError(w io.Writer, msg string) int {
	fail(w, fmt.Errorf("%w: %s", gram.ErrUsage, msg))
	printUsage(w)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `
USAGE:

  gram-writer --feature [--persist|--no-persist] <setting>=<value>
  gram-writer --kernel <setting>=<value>
  gram-writer --service <setting>=<0|1>
  gram-writer --system-info

where <setting> is one of:

`)
	for _, s := range gram.Settings() {
		values := make([]string, len(s.Choices))
		for i, c := range s.Choices {
			values[i] = c.Value
		}
		fmt.Fprintf(w, "  %s: <value>=%s\n", s.ID, strings.Join(values, "/"))
	}
	fmt.Fprintln(w)
}
