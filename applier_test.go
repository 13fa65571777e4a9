package gram

import (
	"context"
	"errors"
	"testing"
)

// fakeWriter echoes its arguments, prints DMI lines for --system-info and
// fails like the real writer when the assignment names "bogus".
const fakeWriter = `
case "$*" in
--system-info)
	printf 'Vendor\nLG Electronics\nProduct Name\n16Z90R\n' ;;
*bogus*)
	echo 'ERROR: unknown setting: "bogus"' >&2
	exit 1 ;;
*)
	echo "$*" ;;
esac
`

func TestElevatedApplier_Apply(t *testing.T) {
	a := NewElevatedApplier("", writeScript(t, fakeWriter))
	ctx := context.Background()

	tests := []struct {
		req  Request
		want string
	}{
		{Request{ID: BatteryCareLimit, Value: "80"}, "--feature battery_care_limit=80"},
		{Request{ID: FanMode, Value: "2", Persist: PersistEnable}, "--feature --persist fan_mode=2"},
		{Request{ID: FnLock, Value: "0", Persist: PersistDisable}, "--feature --no-persist fn_lock=0"},
	}
	for _, tt := range tests {
		got, err := a.Apply(ctx, tt.req)
		if err != nil {
			t.Fatalf("Apply(%+v) failed: %v", tt.req, err)
		}
		if got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestElevatedApplier_SetPersistent(t *testing.T) {
	a := NewElevatedApplier("", writeScript(t, fakeWriter))

	got, err := a.SetPersistent(context.Background(), USBCharge, true)
	if err != nil {
		t.Fatalf("SetPersistent failed: %v", err)
	}
	if got != "--service usb_charge=1" {
		t.Errorf("unexpected arguments %q", got)
	}
}

func TestElevatedApplier_Elevator(t *testing.T) {
	// env runs the writer unchanged, standing in for pkexec.
	a := NewElevatedApplier("env", writeScript(t, fakeWriter))

	got, err := a.SetPersistent(context.Background(), ReaderMode, false)
	if err != nil {
		t.Fatalf("SetPersistent failed: %v", err)
	}
	if got != "--service reader_mode=0" {
		t.Errorf("unexpected arguments %q", got)
	}
}

func TestElevatedApplier_ExitError(t *testing.T) {
	a := NewElevatedApplier("", writeScript(t, fakeWriter))

	_, err := a.Apply(context.Background(), Request{ID: "bogus", Value: "1"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("expected exit 1, got %d", exitErr.ExitCode())
	}
	if exitErr.Error() != `ERROR: unknown setting: "bogus"` {
		t.Errorf("expected the writer's line verbatim, got %q", exitErr.Error())
	}
}

func TestElevatedApplier_MissingWriter(t *testing.T) {
	a := NewElevatedApplier("", "/nonexistent/gram-writer")

	_, err := a.Apply(context.Background(), Request{ID: FnLock, Value: "1"})
	if err == nil {
		t.Fatal("expected error")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Errorf("a writer that never ran has no exit status, got %v", exitErr)
	}
}

func TestElevatedApplier_SystemInfo(t *testing.T) {
	a := NewElevatedApplier("", writeScript(t, fakeWriter))

	fields, err := a.SystemInfo(context.Background())
	if err != nil {
		t.Fatalf("SystemInfo failed: %v", err)
	}
	want := []InfoField{{"Vendor", "LG Electronics"}, {"Product Name", "16Z90R"}}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: expected %+v, got %+v", i, want[i], fields[i])
		}
	}
}

func TestExitError_EmptyMessage(t *testing.T) {
	err := &ExitError{Code: 126}
	if err.Error() != "writer exited with status 126" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
