// Package testing provides test utilities and helpers for gram controller
// and writer testing.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/gram"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the controller reaches the expected state or timeout occurs.
func WaitForState(t *testing.T, c *gram.Controller, expected gram.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return c.State() == expected
	})
}

// RequireState fails the test immediately if the controller is not in the expected state.
func RequireState(t *testing.T, c *gram.Controller, expected gram.State) {
	t.Helper()
	if got := c.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireCommitted fails the test if the controller's committed value is not value.
func RequireCommitted(t *testing.T, c *gram.Controller, value string) {
	t.Helper()
	choice, ok := c.Committed()
	if !ok {
		t.Fatal("expected a committed value, controller is not bound")
	}
	if choice.Value != value {
		t.Fatalf("expected committed value %q, got %q (%s)", value, choice.Value, choice.Label)
	}
}

// NewFeatureTree creates a temporary attribute directory holding one file
// per entry, formatted the way the driver formats them.
func NewFeatureTree(t *testing.T, values map[string]string) *gram.Store {
	t.Helper()
	dir := t.TempDir()
	for id, value := range values {
		if err := os.WriteFile(filepath.Join(dir, id), []byte(value+"\n"), 0o644); err != nil {
			t.Fatalf("failed to seed %s: %v", id, err)
		}
	}
	return gram.NewStore(dir)
}

// ReadFeature returns the raw contents of an attribute, newline included.
func ReadFeature(t *testing.T, store *gram.Store, id string) string {
	t.Helper()
	data, err := os.ReadFile(store.Path(id))
	if err != nil {
		t.Fatalf("failed to read %s: %v", id, err)
	}
	return string(data)
}

// -----------------------------------------------------------------------------
// Services
// -----------------------------------------------------------------------------

// Services is an in-memory gram.ServiceManager that journals every call.
type Services struct {
	mu       sync.Mutex
	enabled  map[string]bool
	journal  []string
	failures map[string]error
	observe  func(op, unit string)
}

// NewServices creates a Services with the given units already enabled.
func NewServices(enabled ...string) *Services {
	s := &Services{
		enabled:  make(map[string]bool),
		failures: make(map[string]error),
	}
	for _, unit := range enabled {
		s.enabled[unit] = true
	}
	return s
}

// Fail makes op ("enable", "disable" or "is-enabled") on unit return err.
func (s *Services) Fail(op, unit string, err error) *Services {
	s.mu.Lock()
	s.failures[op+" "+unit] = err
	s.mu.Unlock()
	return s
}

// Observe registers fn to run on every enable or disable, before it is
// recorded. Tests use it to inspect the store at the moment a unit moves.
func (s *Services) Observe(fn func(op, unit string)) *Services {
	s.mu.Lock()
	s.observe = fn
	s.mu.Unlock()
	return s
}

// Enable implements gram.ServiceManager.
func (s *Services) Enable(_ context.Context, unit string) error {
	return s.change("enable", unit, true)
}

// Disable implements gram.ServiceManager.
func (s *Services) Disable(_ context.Context, unit string) error {
	return s.change("disable", unit, false)
}

// IsEnabled implements gram.ServiceManager.
func (s *Services) IsEnabled(_ context.Context, unit string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["is-enabled "+unit]; err != nil {
		return false, err
	}
	return s.enabled[unit], nil
}

func (s *Services) change(op, unit string, on bool) error {
	s.mu.Lock()
	observe := s.observe
	err := s.failures[op+" "+unit]
	s.mu.Unlock()

	if observe != nil {
		observe(op, unit)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", gram.ErrService, err)
	}

	s.mu.Lock()
	s.enabled[unit] = on
	s.journal = append(s.journal, op+" "+unit)
	s.mu.Unlock()
	return nil
}

// Enabled reports whether unit is enabled.
func (s *Services) Enabled(unit string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[unit]
}

// Journal returns the successful enable/disable calls in order, formatted
// as "<op> <unit>".
func (s *Services) Journal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.journal...)
}

// -----------------------------------------------------------------------------
// Applier
// -----------------------------------------------------------------------------

// Applier is a gram.Applier backed by an in-process gram.Writer, with
// failure injection and per-call gating for concurrency tests.
type Applier struct {
	writer *gram.Writer

	mu       sync.Mutex
	fail     error
	failFor  map[string]error
	blocking bool
	gates    []chan struct{}
	calls    []gram.Request
	persists []string
}

// NewApplier creates an Applier that forwards to writer.
func NewApplier(writer *gram.Writer) *Applier {
	return &Applier{
		writer:  writer,
		failFor: make(map[string]error),
	}
}

// NewTestApplier builds a writer over store and services and wraps it.
func NewTestApplier(store *gram.Store, services *Services) *Applier {
	companions := gram.Companions{Prefix: gram.DefaultUnitPrefix, Manager: services}
	writer := gram.NewWriter(store, companions).EUID(func() int { return 0 })
	return NewApplier(writer)
}

// FailWith makes every subsequent call fail with err without reaching the
// writer. A nil err restores normal behavior.
func (a *Applier) FailWith(err error) *Applier {
	a.mu.Lock()
	a.fail = err
	a.mu.Unlock()
	return a
}

// FailValue makes requests for value fail with err.
func (a *Applier) FailValue(value string, err error) *Applier {
	a.mu.Lock()
	a.failFor[value] = err
	a.mu.Unlock()
	return a
}

// Block makes every subsequent Apply wait until Release is called with its
// call index.
func (a *Applier) Block() *Applier {
	a.mu.Lock()
	a.blocking = true
	a.mu.Unlock()
	return a
}

// Release lets the Apply call with the given index proceed.
func (a *Applier) Release(index int) {
	a.mu.Lock()
	gate := a.gate(index)
	a.mu.Unlock()
	close(gate)
}

// gate returns the gate for call index. Caller holds a.mu.
func (a *Applier) gate(index int) chan struct{} {
	for len(a.gates) <= index {
		a.gates = append(a.gates, make(chan struct{}))
	}
	return a.gates[index]
}

// Apply implements gram.Applier.
func (a *Applier) Apply(ctx context.Context, req gram.Request) (string, error) {
	a.mu.Lock()
	index := len(a.calls)
	a.calls = append(a.calls, req)
	var gate chan struct{}
	if a.blocking {
		gate = a.gate(index)
	}
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	a.mu.Lock()
	err := a.fail
	if err == nil {
		err = a.failFor[req.Value]
	}
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	return a.writer.Apply(ctx, req)
}

// SetPersistent implements gram.Applier.
func (a *Applier) SetPersistent(ctx context.Context, id string, on bool) (string, error) {
	a.mu.Lock()
	a.persists = append(a.persists, fmt.Sprintf("%s=%t", id, on))
	err := a.fail
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	return a.writer.SetPersistent(ctx, id, on)
}

// Calls returns the feature requests received so far.
func (a *Applier) Calls() []gram.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]gram.Request(nil), a.calls...)
}

// CallCount returns the number of feature requests received so far.
func (a *Applier) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// Persists returns the persistence requests received so far, formatted as
// "<setting>=<on>".
func (a *Applier) Persists() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.persists...)
}

var (
	_ gram.Applier        = (*Applier)(nil)
	_ gram.ServiceManager = (*Services)(nil)
)

// NewTestController creates a sync-mode controller over a fresh feature
// tree and an in-process writer. The control is returned for driving user
// changes.
func NewTestController(t *testing.T, values map[string]string, services *Services) (*gram.Controller, *gram.Selector, *Applier, *gram.Store) {
	t.Helper()
	store := NewFeatureTree(t, values)
	applier := NewTestApplier(store, services)
	selector := gram.NewSelector()
	c := gram.New(applier, store, selector).SyncMode()
	return c, selector, applier, store
}
