package gram

import (
	"testing"
	"time"
)

func TestKeySetting(t *testing.T) {
	field := KeySetting.Field(BatteryCareLimit)
	if field.Key().Name() != "setting" {
		t.Errorf("expected key 'setting', got %q", field.Key().Name())
	}
}

func TestKeyValue(t *testing.T) {
	field := KeyValue.Field("80")
	if field.Key().Name() != "value" {
		t.Errorf("expected key 'value', got %q", field.Key().Name())
	}
}

func TestKeyUnit(t *testing.T) {
	field := KeyUnit.Field("lg-gram-fn-lock-1.service")
	if field.Key().Name() != "unit" {
		t.Errorf("expected key 'unit', got %q", field.Key().Name())
	}
}

func TestKeyStates(t *testing.T) {
	if name := KeyOldState.Field("ready").Key().Name(); name != "old_state" {
		t.Errorf("expected key 'old_state', got %q", name)
	}
	if name := KeyNewState.Field("applying").Key().Name(); name != "new_state" {
		t.Errorf("expected key 'new_state', got %q", name)
	}
}

func TestKeyError(t *testing.T) {
	field := KeyError.Field("value rejected by driver")
	if field.Key().Name() != "error" {
		t.Errorf("expected key 'error', got %q", field.Key().Name())
	}
}

func TestKeyControl(t *testing.T) {
	field := KeyControl.Field("persistence")
	if field.Key().Name() != "control" {
		t.Errorf("expected key 'control', got %q", field.Key().Name())
	}
}

func TestKeySequence(t *testing.T) {
	field := KeySequence.Field(3)
	if field.Key().Name() != "sequence" {
		t.Errorf("expected key 'sequence', got %q", field.Key().Name())
	}
}

func TestKeyDuration(t *testing.T) {
	field := KeyDuration.Field(250 * time.Millisecond)
	if field.Key().Name() != "duration" {
		t.Errorf("expected key 'duration', got %q", field.Key().Name())
	}
}

func TestKeyMessage(t *testing.T) {
	field := KeyMessage.Field("Successfully changed fn_lock setting")
	if field.Key().Name() != "message" {
		t.Errorf("expected key 'message', got %q", field.Key().Name())
	}
}
