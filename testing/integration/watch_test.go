package integration

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/gram"
	gramtest "github.com/zoobzio/gram/testing"
)

func TestWatch_FollowsExternalWriter(t *testing.T) {
	services := gramtest.NewServices()
	store := gramtest.NewFeatureTree(t, map[string]string{gram.FanMode: "0"})
	selector := gram.NewSelector()

	c := gram.New(gramtest.NewTestApplier(store, services), store, selector).
		Debounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Init(ctx, gram.FanMode); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := c.Watch(ctx, gram.NewFeatureWatcher(store, gram.FanMode)); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Another process (the boot unit, a second panel) changes the value.
	other := gram.NewWriter(store, gram.Companions{Manager: services})
	if _, err := other.WriteOnly(ctx, gram.FanMode, "2"); err != nil {
		t.Fatalf("WriteOnly() error = %v", err)
	}

	if !gramtest.WaitFor(t, 2*time.Second, func() bool { return selector.Selected() == 2 }) {
		t.Fatalf("expected control to follow the attribute, got %d", selector.Selected())
	}
	gramtest.RequireCommitted(t, c, "2")
	if c.Reverting() {
		t.Error("reverting flag must be consumed")
	}
}

func TestWatch_UserChangeNotEchoed(t *testing.T) {
	services := gramtest.NewServices()
	store := gramtest.NewFeatureTree(t, map[string]string{gram.FnLock: "0"})
	applier := gramtest.NewTestApplier(store, services)
	selector := gram.NewSelector()

	c := gram.New(applier, store, selector).Debounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Init(ctx, gram.FnLock); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := c.Watch(ctx, gram.NewFeatureWatcher(store, gram.FnLock)); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	selector.SetSelected(1)
	if !gramtest.WaitForState(t, c, gram.StateReady, 2*time.Second) {
		t.Fatalf("expected ready, got %s", c.State())
	}

	// Let the write's own inotify event settle.
	time.Sleep(100 * time.Millisecond)

	if applier.CallCount() != 1 {
		t.Errorf("the controller's own write must not issue another request, got %d", applier.CallCount())
	}
	gramtest.RequireCommitted(t, c, "1")
}
