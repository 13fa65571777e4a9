package gram

import "github.com/zoobzio/capitan"

// Field keys for controller and writer events.
var (
	// KeySetting is the setting identifier.
	KeySetting = capitan.NewStringKey("setting")

	// KeyValue is the feature value involved in the event.
	KeyValue = capitan.NewStringKey("value")

	// KeyUnit is the companion unit name.
	KeyUnit = capitan.NewStringKey("unit")

	// KeyMessage is the writer's confirmation line.
	KeyMessage = capitan.NewStringKey("message")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyControl names which control an event concerns: "feature" or "persistence".
	KeyControl = capitan.NewStringKey("control")

	// KeySequence is the sequence number of an apply request.
	KeySequence = capitan.NewIntKey("sequence")

	// KeyDuration is how long an apply request took.
	KeyDuration = capitan.NewDurationKey("duration")
)
