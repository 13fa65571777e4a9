package gram

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sys/unix"
)

// DefaultConfigPath is read by both binaries. Only gramctl can be pointed
// elsewhere with --config.
const DefaultConfigPath = "/etc/lg-gram-settings/config.yaml"

// validate is the shared validator instance.
var validate = validator.New()

// Config locates the feature store, the writer and the service manager.
type Config struct {
	FeaturesPath string `yaml:"features_path" json:"features_path" validate:"required"`
	DMIPath      string `yaml:"dmi_path" json:"dmi_path" validate:"required"`
	Writer       string `yaml:"writer" json:"writer" validate:"required"`
	Elevator     string `yaml:"elevator" json:"elevator"`
	Systemctl    string `yaml:"systemctl" json:"systemctl" validate:"required"`
	UnitPrefix   string `yaml:"unit_prefix" json:"unit_prefix" validate:"required,excludesall=/ "`
}

// DefaultConfig returns the stock locations on an LG Gram.
func DefaultConfig() Config {
	return Config{
		FeaturesPath: DefaultFeaturesPath,
		DMIPath:      DefaultDMIPath,
		Writer:       DefaultWriter,
		Elevator:     DefaultElevator,
		Systemctl:    "systemctl",
		UnitPrefix:   DefaultUnitPrefix,
	}
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults unchanged; keys absent from the file keep their default value.
func LoadConfig(path string, codec Codec) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading config file '%s': %w", path, err)
	}
	return decodeConfig(cfg, path, data, codec)
}

// LoadTrustedConfig is LoadConfig for code running as root. The config names
// the programs and directories root acts on, so the file must be a regular
// file owned by uid 0 that neither group nor others can write. A missing
// file yields the defaults.
func LoadTrustedConfig(path string, codec Codec) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading config file '%s': %w", path, err)
	}
	defer f.Close()

	// Stat the open descriptor so the checked file is the one read.
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil { //nolint:gosec // fd fits in int
		return cfg, fmt.Errorf("error reading config file '%s': %w", path, err)
	}
	if err := checkOwnership(st.Uid, st.Mode); err != nil {
		return cfg, fmt.Errorf("refusing config '%s': %w", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file '%s': %w", path, err)
	}
	return decodeConfig(cfg, path, data, codec)
}

func checkOwnership(uid, mode uint32) error {
	switch {
	case mode&unix.S_IFMT != unix.S_IFREG:
		return fmt.Errorf("%w: not a regular file", ErrUntrusted)
	case uid != 0:
		return fmt.Errorf("%w: owned by uid %d, not root", ErrUntrusted, uid)
	case mode&0o022 != 0:
		return fmt.Errorf("%w: writable by group or others (mode %#o)", ErrUntrusted, mode&0o777)
	}
	return nil
}

func decodeConfig(cfg Config, path string, data []byte, codec Codec) (Config, error) {
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing %s from '%s': %w", codec.ContentType(), path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return cfg, nil
}

// Store returns the feature store the config points at.
func (c Config) Store() *Store {
	return NewStore(c.FeaturesPath)
}

// Companions returns the companion units backed by systemctl.
func (c Config) Companions() Companions {
	return Companions{Prefix: c.UnitPrefix, Manager: NewSystemd(c.Systemctl)}
}

// Applier returns the elevated applier the config points at.
func (c Config) Applier() *ElevatedApplier {
	return NewElevatedApplier(c.Elevator, c.Writer)
}
