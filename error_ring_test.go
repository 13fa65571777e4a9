package gram

import (
	"errors"
	"testing"
	"time"
)

func failure(msg string) Failure {
	return Failure{Setting: FnLock, Value: "1", Err: errors.New(msg), At: time.Unix(0, 0)}
}

func TestFailureRing_NilSafe(t *testing.T) {
	var r *failureRing

	// All operations should be safe on nil
	r.push(failure("test"))

	if r.all() != nil {
		t.Error("expected nil from nil ring")
	}
}

func TestFailureRing_ZeroSize(t *testing.T) {
	if r := newFailureRing(0); r != nil {
		t.Error("expected nil ring for size 0")
	}
	if r := newFailureRing(-1); r != nil {
		t.Error("expected nil ring for negative size")
	}
}

func TestFailureRing_Empty(t *testing.T) {
	r := newFailureRing(3)
	if r.all() != nil {
		t.Error("expected nil from empty ring")
	}
}

func TestFailureRing_FillsWithoutWrapping(t *testing.T) {
	r := newFailureRing(3)

	r.push(failure("error1"))
	r.push(failure("error2"))

	got := r.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(got))
	}
	// Oldest first
	if got[0].Err.Error() != "error1" || got[1].Err.Error() != "error2" {
		t.Errorf("unexpected order: %v, %v", got[0].Err, got[1].Err)
	}
	if got[0].Setting != FnLock || got[0].Value != "1" {
		t.Errorf("expected setting and value to be kept, got %+v", got[0])
	}
}

func TestFailureRing_WrapsAndEvictsOldest(t *testing.T) {
	r := newFailureRing(3)

	for _, msg := range []string{"error1", "error2", "error3", "error4"} {
		r.push(failure(msg))
	}

	got := r.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(got))
	}
	for i, want := range []string{"error2", "error3", "error4"} {
		if got[i].Err.Error() != want {
			t.Errorf("position %d: expected %s, got %v", i, want, got[i].Err)
		}
	}
}

func TestFailureRing_MultipleWraps(t *testing.T) {
	r := newFailureRing(2)

	for i := 0; i < 10; i++ {
		r.push(failure("error"))
	}

	if got := r.all(); len(got) != 2 {
		t.Errorf("expected 2 failures after multiple wraps, got %d", len(got))
	}
}
