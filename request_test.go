package gram

import "testing"

func TestRequest_Argument(t *testing.T) {
	req := Request{ID: BatteryCareLimit, Value: "80"}
	if got := req.Argument(); got != "battery_care_limit=80" {
		t.Errorf("Argument() = %q, want %q", got, "battery_care_limit=80")
	}
}

func TestRequest_DefaultPersistence(t *testing.T) {
	var req Request
	if req.Persist != PersistUnchanged {
		t.Errorf("expected zero Request to leave persistence unchanged, got %s", req.Persist)
	}
}
