package gram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Applier performs privileged changes on behalf of a Controller. Writer
// implements it in-process; ElevatedApplier reaches a Writer through a
// privilege-elevation wrapper.
type Applier interface {
	Apply(ctx context.Context, req Request) (string, error)
	SetPersistent(ctx context.Context, id string, on bool) (string, error)
}

// Ensure both appliers satisfy the interface.
var (
	_ Applier = (*Writer)(nil)
	_ Applier = (*ElevatedApplier)(nil)
)

// Default locations of the elevation wrapper and the writer binary.
const (
	DefaultElevator = "pkexec"
	DefaultWriter   = "/usr/share/lg-gram-settings/lg-gram-writer"
)

// ElevatedApplier runs the writer binary as a separate process, normally
// behind pkexec. The call blocks for as long as the credential prompt is
// open; there is no timeout.
type ElevatedApplier struct {
	elevator []string
	writer   string
}

// NewElevatedApplier creates an applier that runs writer under elevator. The
// elevator may carry its own arguments ("sudo -n"); an empty elevator runs
// the writer directly.
func NewElevatedApplier(elevator, writer string) *ElevatedApplier {
	return &ElevatedApplier{
		elevator: strings.Fields(elevator),
		writer:   writer,
	}
}

// Apply runs "<writer> --feature [--persist|--no-persist] <setting>=<value>".
func (a *ElevatedApplier) Apply(ctx context.Context, req Request) (string, error) {
	args := []string{"--feature"}
	switch req.Persist {
	case PersistEnable:
		args = append(args, "--persist")
	case PersistDisable:
		args = append(args, "--no-persist")
	}
	return a.run(ctx, append(args, req.Argument())...)
}

// SetPersistent runs "<writer> --service <setting>=<0|1>".
func (a *ElevatedApplier) SetPersistent(ctx context.Context, id string, on bool) (string, error) {
	value := "0"
	if on {
		value = "1"
	}
	return a.run(ctx, "--service", id+"="+value)
}

// SystemInfo runs "<writer> --system-info" and parses its output.
func (a *ElevatedApplier) SystemInfo(ctx context.Context) ([]InfoField, error) {
	out, err := a.run(ctx, "--system-info")
	if err != nil {
		return nil, err
	}
	return ParseSystemInfo(out), nil
}

func (a *ElevatedApplier) run(ctx context.Context, args ...string) (string, error) {
	argv := append(append([]string{}, a.elevator...), a.writer)
	argv = append(argv, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{
				Code:    exitErr.ExitCode(),
				Message: strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
