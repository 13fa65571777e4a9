package gram

import "github.com/zoobzio/capitan"

// Controller lifecycle signals.
var (
	// ControllerBound is emitted when a Controller is bound to a setting and
	// seeded from the feature store.
	ControllerBound = capitan.NewSignal(
		"gram.controller.bound",
		"Controller bound to setting",
	)

	// ControllerInitFailed is emitted when the initial feature read fails.
	ControllerInitFailed = capitan.NewSignal(
		"gram.controller.init.failed",
		"Initial feature read failed",
	)

	// ControllerStateChanged is emitted when a Controller transitions between states.
	ControllerStateChanged = capitan.NewSignal(
		"gram.controller.state.changed",
		"Controller state transition",
	)

	// ControllerRefreshed is emitted when a re-read of the feature store moved
	// the committed value.
	ControllerRefreshed = capitan.NewSignal(
		"gram.controller.refreshed",
		"Committed value re-read from feature store",
	)
)

// Apply signals.
var (
	// ApplyRequested is emitted when a user change issues an apply request.
	ApplyRequested = capitan.NewSignal(
		"gram.apply.requested",
		"Apply request issued",
	)

	// ApplySucceeded is emitted when the writer accepted a request.
	ApplySucceeded = capitan.NewSignal(
		"gram.apply.succeeded",
		"Apply request committed",
	)

	// ApplyFailed is emitted when the writer rejected a request.
	ApplyFailed = capitan.NewSignal(
		"gram.apply.failed",
		"Apply request failed",
	)

	// ApplyCoalesced is emitted when a change arrives while a request is in
	// flight and is queued behind it.
	ApplyCoalesced = capitan.NewSignal(
		"gram.apply.coalesced",
		"Change queued behind in-flight request",
	)

	// ApplyStale is emitted when a completion arrives for a request that a
	// newer one has superseded.
	ApplyStale = capitan.NewSignal(
		"gram.apply.stale",
		"Superseded apply result ignored",
	)

	// ControlReverted is emitted when a control is restored to its committed value.
	ControlReverted = capitan.NewSignal(
		"gram.control.reverted",
		"Control restored to committed value",
	)

	// NotificationSuppressed is emitted when a self-inflicted change
	// notification is consumed.
	NotificationSuppressed = capitan.NewSignal(
		"gram.notification.suppressed",
		"Self-inflicted change notification consumed",
	)

	// PersistenceChanged is emitted when a companion unit toggle was applied.
	PersistenceChanged = capitan.NewSignal(
		"gram.persistence.changed",
		"Persistence toggle applied",
	)

	// PersistenceFailed is emitted when a companion unit toggle failed.
	PersistenceFailed = capitan.NewSignal(
		"gram.persistence.failed",
		"Persistence toggle failed",
	)
)

// Writer signals.
var (
	// WriterRejected is emitted when a request fails validation.
	WriterRejected = capitan.NewSignal(
		"gram.writer.rejected",
		"Request rejected before mutation",
	)

	// WriterAttributeWritten is emitted after a successful attribute write.
	WriterAttributeWritten = capitan.NewSignal(
		"gram.writer.attribute.written",
		"Feature attribute written",
	)

	// WriterUnitEnabled is emitted after a companion unit is enabled.
	WriterUnitEnabled = capitan.NewSignal(
		"gram.writer.unit.enabled",
		"Companion unit enabled",
	)

	// WriterUnitDisabled is emitted after a companion unit is disabled.
	WriterUnitDisabled = capitan.NewSignal(
		"gram.writer.unit.disabled",
		"Companion unit disabled",
	)
)
