package gram

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
	"golang.org/x/sys/unix"
)

// Stage names of the writer pipeline.
const (
	stageDisable pipz.Name = "disable-units"
	stageWrite   pipz.Name = "write-attribute"
	stageEnable  pipz.Name = "enable-unit"
)

// plan is one validated mutation as it flows through the writer pipeline.
type plan struct {
	setting Setting
	value   string
	write   bool
	disable []string
	enable  bool
}

// Writer is the privileged side: it validates requests against the
// whitelist and mutates the feature store and companion units.
//
// Unit changes are ordered around the attribute write. Units that must be
// disabled are disabled before the write; a unit that must be enabled is
// enabled only after the write succeeded. A failed write therefore leaves
// at most a disabled unit behind, never an enabled one pointing at a value
// that was not committed.
type Writer struct {
	store      *Store
	companions Companions
	dmiPath    string
	euid       func() int
	pipeline   pipz.Chainable[*plan]
}

// NewWriter creates a Writer over a feature store and companion units.
func NewWriter(store *Store, companions Companions) *Writer {
	w := &Writer{
		store:      store,
		companions: companions,
		dmiPath:    DefaultDMIPath,
		euid:       unix.Geteuid,
	}
	w.pipeline = pipz.NewSequence[*plan]("writer",
		pipz.Effect(stageDisable, func(ctx context.Context, p *plan) error {
			for _, v := range p.disable {
				if err := w.disable(ctx, p.setting, v); err != nil {
					return err
				}
			}
			return nil
		}),
		pipz.Effect(stageWrite, func(ctx context.Context, p *plan) error {
			if !p.write {
				return nil
			}
			return w.write(ctx, p.setting, p.value)
		}),
		pipz.Effect(stageEnable, func(ctx context.Context, p *plan) error {
			if !p.enable {
				return nil
			}
			return w.enable(ctx, p.setting, p.value)
		}),
	)
	return w
}

// DMIPath sets the directory SystemInfo reads identifiers from.
func (w *Writer) DMIPath(path string) *Writer {
	w.dmiPath = path
	return w
}

// EUID sets the function used to read the effective user id.
func (w *Writer) EUID(fn func() int) *Writer {
	w.euid = fn
	return w
}

// CheckPrivilege fails unless the process runs with effective uid 0.
func (w *Writer) CheckPrivilege() error {
	if w.euid() != 0 {
		return ErrNotPrivileged
	}
	return nil
}

// Apply sets a feature and migrates its persistence according to
// req.Persist. Nothing is mutated unless the request validates.
func (w *Writer) Apply(ctx context.Context, req Request) (string, error) {
	setting, err := w.validate(ctx, req)
	if err != nil {
		return "", err
	}

	enabled, err := w.companions.Enabled(ctx, setting)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.ID, err)
	}

	isDefault := setting.IsDefault(req.Value)
	var disable []string
	for _, v := range enabled {
		if v != req.Value || req.Persist == PersistDisable {
			disable = append(disable, v)
		}
	}
	enable := !isDefault && !slices.Contains(enabled, req.Value) &&
		(req.Persist == PersistEnable || (req.Persist == PersistUnchanged && len(enabled) > 0))
	if req.Persist == PersistDisable {
		enable = false
	}

	err = w.execute(ctx, &plan{
		setting: setting,
		value:   req.Value,
		write:   true,
		disable: disable,
		enable:  enable,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully changed %s setting", req.ID), nil
}

// WriteOnly sets a feature without touching any companion unit.
func (w *Writer) WriteOnly(ctx context.Context, id, value string) (string, error) {
	setting, err := w.validate(ctx, Request{ID: id, Value: value})
	if err != nil {
		return "", err
	}
	if err := w.execute(ctx, &plan{setting: setting, value: value, write: true}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully changed %s setting", id), nil
}

// SetPersistent enables or disables the companion unit for the setting's
// current value. Enabling first disables units left over for other values.
func (w *Writer) SetPersistent(ctx context.Context, id string, on bool) (string, error) {
	setting, err := Lookup(id)
	if err != nil {
		w.reject(ctx, id, err)
		return "", err
	}

	current, err := w.store.Read(id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", id, err)
	}
	if err := setting.Validate(current); err != nil {
		return "", fmt.Errorf("%s: current value: %w", id, err)
	}
	if on && setting.IsDefault(current) {
		err := fmt.Errorf("%w: %s is at its default value %q, nothing to persist", ErrInvalidValue, id, current)
		w.reject(ctx, id, err)
		return "", err
	}

	enabled, err := w.companions.Enabled(ctx, setting)
	if err != nil {
		return "", fmt.Errorf("%s: %w", id, err)
	}

	var disable []string
	for _, v := range enabled {
		if !on || v != current {
			disable = append(disable, v)
		}
	}

	err = w.execute(ctx, &plan{
		setting: setting,
		value:   current,
		disable: disable,
		enable:  on && !slices.Contains(enabled, current),
	})
	if err != nil {
		return "", err
	}
	if !on {
		return fmt.Sprintf("Disabled %s service", id), nil
	}
	return fmt.Sprintf("Enabled %s service", id), nil
}

// SystemInfo renders the machine's DMI identifiers as label/value lines.
func (w *Writer) SystemInfo() string {
	return FormatSystemInfo(ReadSystemInfo(w.dmiPath))
}

// execute runs a plan through the pipeline. A failing stage stops the ones
// after it; the stage's own error is returned so the message stays one line.
func (w *Writer) execute(ctx context.Context, p *plan) error {
	if _, err := w.pipeline.Process(ctx, p); err != nil {
		var perr *pipz.Error[*plan]
		if errors.As(err, &perr) && perr.Err != nil {
			return perr.Err
		}
		return err
	}
	return nil
}

func (w *Writer) validate(ctx context.Context, req Request) (Setting, error) {
	setting, err := Lookup(req.ID)
	if err != nil {
		w.reject(ctx, req.ID, err)
		return Setting{}, err
	}
	if err := setting.Validate(req.Value); err != nil {
		w.reject(ctx, req.ID, err)
		return Setting{}, err
	}
	if req.Persist == PersistEnable && setting.IsDefault(req.Value) {
		err := fmt.Errorf("%w: %s cannot persist its default value %q", ErrInvalidValue, req.ID, req.Value)
		w.reject(ctx, req.ID, err)
		return Setting{}, err
	}
	return setting, nil
}

func (w *Writer) write(ctx context.Context, setting Setting, value string) error {
	if err := w.store.Write(setting.ID, value); err != nil {
		return fmt.Errorf("%s: %w", setting.ID, err)
	}
	capitan.Emit(ctx, WriterAttributeWritten,
		KeySetting.Field(setting.ID),
		KeyValue.Field(value),
	)
	return nil
}

func (w *Writer) enable(ctx context.Context, setting Setting, value string) error {
	unit := w.companions.Unit(setting, value)
	if err := w.companions.Manager.Enable(ctx, unit); err != nil {
		return fmt.Errorf("%s: %w", setting.ID, err)
	}
	capitan.Emit(ctx, WriterUnitEnabled,
		KeySetting.Field(setting.ID),
		KeyUnit.Field(unit),
	)
	return nil
}

func (w *Writer) disable(ctx context.Context, setting Setting, value string) error {
	unit := w.companions.Unit(setting, value)
	if err := w.companions.Manager.Disable(ctx, unit); err != nil {
		return fmt.Errorf("%s: %w", setting.ID, err)
	}
	capitan.Emit(ctx, WriterUnitDisabled,
		KeySetting.Field(setting.ID),
		KeyUnit.Field(unit),
	)
	return nil
}

func (w *Writer) reject(ctx context.Context, id string, err error) {
	capitan.Emit(ctx, WriterRejected,
		KeySetting.Field(id),
		KeyError.Field(err.Error()),
	)
}
