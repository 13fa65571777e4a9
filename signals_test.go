package gram

import "testing"

func TestSignalNames(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{ControllerBound.Name(), "gram.controller.bound"},
		{ControllerInitFailed.Name(), "gram.controller.init.failed"},
		{ControllerStateChanged.Name(), "gram.controller.state.changed"},
		{ControllerRefreshed.Name(), "gram.controller.refreshed"},
		{ApplyRequested.Name(), "gram.apply.requested"},
		{ApplySucceeded.Name(), "gram.apply.succeeded"},
		{ApplyFailed.Name(), "gram.apply.failed"},
		{ApplyCoalesced.Name(), "gram.apply.coalesced"},
		{ApplyStale.Name(), "gram.apply.stale"},
		{ControlReverted.Name(), "gram.control.reverted"},
		{NotificationSuppressed.Name(), "gram.notification.suppressed"},
		{PersistenceChanged.Name(), "gram.persistence.changed"},
		{PersistenceFailed.Name(), "gram.persistence.failed"},
		{WriterRejected.Name(), "gram.writer.rejected"},
		{WriterAttributeWritten.Name(), "gram.writer.attribute.written"},
		{WriterUnitEnabled.Name(), "gram.writer.unit.enabled"},
		{WriterUnitDisabled.Name(), "gram.writer.unit.disabled"},
	}
	for _, tt := range tests {
		if tt.name != tt.want {
			t.Errorf("expected name %q, got %q", tt.want, tt.name)
		}
	}
}
