package gram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultUnitPrefix prefixes every companion unit name.
const DefaultUnitPrefix = "lg-gram"

// ServiceManager enables and disables companion units.
type ServiceManager interface {
	Enable(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	IsEnabled(ctx context.Context, unit string) (bool, error)
}

// Systemd drives units through systemctl.
type Systemd struct {
	path string
}

// NewSystemd creates a Systemd manager using the given systemctl binary.
// An empty path resolves "systemctl" from PATH.
func NewSystemd(path string) *Systemd {
	if path == "" {
		path = "systemctl"
	}
	return &Systemd{path: path}
}

// Enable runs "systemctl enable <unit>".
func (s *Systemd) Enable(ctx context.Context, unit string) error {
	return s.run(ctx, "enable", unit)
}

// Disable runs "systemctl disable <unit>".
func (s *Systemd) Disable(ctx context.Context, unit string) error {
	return s.run(ctx, "disable", unit)
}

// IsEnabled reports whether "systemctl is-enabled" prints "enabled". A
// non-zero exit (disabled, not-found) is a negative answer, not an error.
func (s *Systemd) IsEnabled(ctx context.Context, unit string) (bool, error) {
	output, err := exec.CommandContext(ctx, s.path, "is-enabled", unit).Output()
	status := strings.TrimSpace(string(output))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s is-enabled %s: %v", ErrService, s.path, unit, err)
	}
	return status == "enabled", nil
}

func (s *Systemd) run(ctx context.Context, verb, unit string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, verb, unit)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: systemctl %s %s: %s", ErrService, verb, unit, msg)
	}
	return nil
}

// Companions maps settings to their companion units. Every non-default value
// of a setting has its own unit that re-applies that value at boot.
type Companions struct {
	Prefix  string
	Manager ServiceManager
}

// Unit returns the unit name for a setting value, or "" for the default value.
func (c Companions) Unit(s Setting, value string) string {
	if s.IsDefault(value) {
		return ""
	}
	return UnitName(c.prefix(), s.ID, value)
}

// Enabled returns the values of s whose units are currently enabled.
func (c Companions) Enabled(ctx context.Context, s Setting) ([]string, error) {
	var values []string
	for _, choice := range s.Choices[1:] {
		on, err := c.Manager.IsEnabled(ctx, c.Unit(s, choice.Value))
		if err != nil {
			return nil, err
		}
		if on {
			values = append(values, choice.Value)
		}
	}
	return values, nil
}

// Persistent reports whether value's unit is enabled.
func (c Companions) Persistent(ctx context.Context, s Setting, value string) (bool, error) {
	unit := c.Unit(s, value)
	if unit == "" {
		return false, nil
	}
	return c.Manager.IsEnabled(ctx, unit)
}

func (c Companions) prefix() string {
	if c.Prefix == "" {
		return DefaultUnitPrefix
	}
	return c.Prefix
}

// UnitName builds a unit name from a setting id and value, normalising
// underscores to hyphens: lg-gram-battery-care-limit-80.service.
func UnitName(prefix, id, value string) string {
	return fmt.Sprintf("%s-%s-%s.service", prefix, strings.ReplaceAll(id, "_", "-"), value)
}
