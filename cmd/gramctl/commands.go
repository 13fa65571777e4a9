package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/zoobzio/gram"
)

func (a *app) list(ctx context.Context, params []string) error {
	if len(params) != 0 {
		return fmt.Errorf("%w: list takes no arguments", gram.ErrUsage)
	}

	store := a.cfg.Store()
	companions := a.cfg.Companions()
	for _, s := range gram.Settings() {
		value, err := store.Read(s.ID)
		if err != nil {
			if errors.Is(err, gram.ErrUnsupported) {
				fmt.Fprintf(a.stdout, "%-20s unsupported\n", s.ID)
				continue
			}
			return err
		}
		fmt.Fprintf(a.stdout, "%-20s %s\n", s.ID, describe(ctx, companions, s, value))
	}
	return nil
}

func (a *app) get(ctx context.Context, params []string) error {
	if len(params) != 1 {
		return fmt.Errorf("%w: get takes one setting", gram.ErrUsage)
	}
	setting, err := gram.Lookup(params[0])
	if err != nil {
		return err
	}
	value, err := a.cfg.Store().Read(setting.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, describe(ctx, a.cfg.Companions(), setting, value))
	return nil
}

// describe renders "<label> (<value>)" plus a persistence marker.
func describe(ctx context.Context, companions gram.Companions, s gram.Setting, value string) string {
	label := "unknown"
	if i := s.Index(value); i >= 0 {
		label = s.Choices[i].Label
	}
	out := fmt.Sprintf("%s (%s)", label, value)
	if persistent, err := companions.Persistent(ctx, s, value); err == nil && persistent {
		out += " [persistent]"
	}
	return out
}

func (a *app) set(ctx context.Context, params []string) error {
	var persist, noPersist bool
	flagSet := pflag.NewFlagSet("set", pflag.ContinueOnError)
	flagSet.BoolVar(&persist, "persist", false, "keep the new value across reboots")
	flagSet.BoolVar(&noPersist, "no-persist", false, "stop re-applying the setting at boot")
	if err := flagSet.Parse(params); err != nil {
		return fmt.Errorf("%w: %v", gram.ErrUsage, err)
	}
	if persist && noPersist {
		return fmt.Errorf("%w: --persist and --no-persist are mutually exclusive", gram.ErrUsage)
	}

	setting, index, err := parseTarget(flagSet.Args())
	if err != nil {
		return err
	}

	applier := a.cfg.Applier()

	// An explicit persistence choice bypasses the controller, which only
	// ever carries persistence over.
	if persist || noPersist {
		req := gram.Request{ID: setting.ID, Value: setting.Choices[index].Value, Persist: gram.PersistEnable}
		if noPersist {
			req.Persist = gram.PersistDisable
		}
		msg, err := applier.Apply(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, msg)
		return nil
	}

	selector := gram.NewSelector()
	ctrl := gram.New(applier, a.cfg.Store(), selector).SyncMode()
	if err := ctrl.Init(ctx, setting.ID); err != nil {
		return err
	}

	selector.SetSelected(index)
	if err := ctrl.LastError(); err != nil {
		return err
	}
	committed, _ := ctrl.Committed()
	fmt.Fprintf(a.stdout, "%s: %s (%s)\n", setting.ID, committed.Label, committed.Value)
	return nil
}

// parseTarget accepts "<setting> <value|label>" or "<setting>=<value>".
func parseTarget(args []string) (gram.Setting, int, error) {
	switch len(args) {
	case 1:
		setting, value, err := gram.ParseAssignment(args[0])
		if err != nil {
			return gram.Setting{}, -1, err
		}
		return setting, setting.Index(value), nil
	case 2:
		setting, err := gram.Lookup(args[0])
		if err != nil {
			return gram.Setting{}, -1, err
		}
		index, err := setting.Resolve(args[1])
		if err != nil {
			return gram.Setting{}, -1, err
		}
		return setting, index, nil
	default:
		return gram.Setting{}, -1, fmt.Errorf("%w: set takes a setting and a value", gram.ErrUsage)
	}
}

func (a *app) persist(ctx context.Context, params []string) error {
	if len(params) != 2 {
		return fmt.Errorf("%w: persist takes a setting and on|off", gram.ErrUsage)
	}
	var on bool
	switch strings.ToLower(params[1]) {
	case "on", "1", "true":
		on = true
	case "off", "0", "false":
	default:
		return fmt.Errorf("%w: expected on or off, got %q", gram.ErrUsage, params[1])
	}

	toggle := gram.NewSwitch()
	ctrl := gram.New(a.cfg.Applier(), a.cfg.Store(), gram.NewSelector()).
		Persistence(toggle, a.cfg.Companions()).
		SyncMode()
	if err := ctrl.Init(ctx, params[0]); err != nil {
		return err
	}
	if on && !toggle.Sensitive() {
		committed, _ := ctrl.Committed()
		return fmt.Errorf("%w: %s is at its default value %q, nothing to persist",
			gram.ErrInvalidValue, params[0], committed.Value)
	}

	toggle.SetActive(on)
	if err := ctrl.LastError(); err != nil {
		return err
	}
	state := "off"
	if toggle.Active() {
		state = "on"
	}
	fmt.Fprintf(a.stdout, "%s: persistence %s\n", params[0], state)
	return nil
}

func (a *app) info(ctx context.Context, params []string) error {
	var local bool
	flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
	flagSet.BoolVar(&local, "local", false, "read identifiers without elevation (serial number unavailable)")
	if err := flagSet.Parse(params); err != nil {
		return fmt.Errorf("%w: %v", gram.ErrUsage, err)
	}

	var fields []gram.InfoField
	if local {
		fields = gram.ReadSystemInfo(a.cfg.DMIPath)
	} else {
		var err error
		fields, err = a.cfg.Applier().SystemInfo(ctx)
		if err != nil {
			return err
		}
	}
	for _, f := range fields {
		fmt.Fprintf(a.stdout, "%-14s %s\n", f.Label+":", f.Value)
	}
	return nil
}
