package gram

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is; messages are wrapped with the
// setting id and the underlying cause so a single line is self-contained.
var (
	ErrNotPrivileged  = errors.New("must be run as root")
	ErrUsage          = errors.New("invalid arguments")
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidValue   = errors.New("invalid value")
	ErrUnsupported    = errors.New("setting not supported on this hardware")
	ErrRejected       = errors.New("value rejected by driver")
	ErrService        = errors.New("service manager failed")
	ErrStale          = errors.New("superseded by a newer request")
	ErrAlreadyBound   = errors.New("controller already bound")
	ErrUntrusted      = errors.New("config file not trusted")
)

// ExitError is a failure reported by an out-of-process writer: the exit
// status plus the diagnostic line it printed.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("writer exited with status %d", e.Code)
	}
	return e.Message
}

// ExitCode returns the writer's exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}
