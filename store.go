package gram

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFeaturesPath is where the lg-laptop driver exposes its attributes.
const DefaultFeaturesPath = "/sys/devices/platform/lg-laptop"

// FeatureReader reads the authoritative value of a setting.
type FeatureReader interface {
	Read(id string) (string, error)
}

// Store reads and writes feature attribute files, one per setting, under a
// fixed root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the attribute directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the attribute file for a setting.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, id)
}

// Read returns the trimmed contents of the setting's attribute.
func (s *Store) Read(id string) (string, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrUnsupported, s.Path(id))
		}
		return "", fmt.Errorf("failed to read %s: %w", s.Path(id), err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write stores value followed by a newline in the setting's attribute. A
// missing attribute reports ErrUnsupported; a write the driver refuses
// reports ErrRejected.
func (s *Store) Write(id, value string) error {
	path := s.Path(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	// sysfs reports driver errors on close as well as on write
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}
