/*
Package gram exposes the LG Gram platform feature switches (battery care
limit, Fn lock, USB charge, reader mode, fan mode) and keeps user-facing
controls consistent with them.

The kernel driver publishes one attribute file per feature under
/sys/devices/platform/lg-laptop. Writing those files needs root, so the
package is split across a privilege boundary:

  - Writer runs as root (see cmd/gram-writer). It validates a
    setting=value pair against a fixed whitelist and writes the attribute,
    disabling and enabling companion systemd units around the write.
  - Controller runs unprivileged. It seeds a control from the store,
    forwards user changes to an Applier, and commits or reverts the
    control once the result arrives.

# Settings

Every setting has a closed, ordered list of choices. The first choice is
the default value, which never has a companion unit:

	battery_care_limit  100 (No Limit), 80 (Limit to 80%)
	fn_lock             0, 1
	usb_charge          0, 1
	reader_mode         0, 1
	fan_mode            0 (Optimized), 1 (Silent), 2 (Performance)

# Companion Units

A non-default value can be made persistent across reboots by enabling its
unit, named from the setting and value with underscores turned into
hyphens:

	lg-gram-battery-care-limit-80.service

# Controller

A Controller moves through these states:

  - Uninitialized: not bound to a setting, control ignored
  - Ready: control shows the committed value
  - Applying: a request is outstanding
  - Reverting: the control was restored and the resulting notification
    has not been consumed yet
  - Unavailable: the initial read failed, control insensitive

Example:

	cfg, _ := gram.LoadConfig(gram.DefaultConfigPath, gram.YAMLCodec{})

	selector := gram.NewSelector()
	persist := gram.NewSwitch()

	ctrl := gram.New(cfg.Applier(), cfg.Store(), selector).
	    Persistence(persist, cfg.Companions()).
	    OnError(func(_ context.Context, err error) {
	        log.Printf("apply failed: %v", err)
	    })

	if err := ctrl.Init(ctx, gram.BatteryCareLimit); err != nil {
	    return err
	}

	selector.SetSelected(1) // user picks "Limit to 80%"

# Observability

Controller and Writer emit capitan signals (see signals.go) carrying the
keys in fields.go. Hook them to log or audit changes:

	capitan.Hook(gram.ApplyFailed, func(_ context.Context, e *capitan.Event) {
	    msg, _ := gram.KeyError.From(e)
	    slog.Warn("apply failed", "error", msg)
	})
*/
package gram
