package gram

import (
	"context"
	"testing"
	"time"
)

func TestChannelWatcher_ForwardsValues(t *testing.T) {
	source := make(chan []byte, 2)
	source <- []byte("100\n")
	source <- []byte("80\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	for i, want := range []string{"100\n", "80\n"} {
		select {
		case v := <-out:
			if string(v) != want {
				t.Errorf("expected %q, got %q", want, v)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout waiting for value %d", i)
		}
	}
}

func TestChannelWatcher_ClosesOnSourceClose(t *testing.T) {
	source := make(chan []byte, 1)
	source <- []byte("1\n")
	close(source)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	<-out

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for channel close")
	}
}

func TestChannelWatcher_ClosesOnContextCancel(t *testing.T) {
	source := make(chan []byte)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// The watcher is blocked on an empty source.
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for channel close")
	}
}

func TestChannelWatcher_CancelWhileBlockedOnSend(t *testing.T) {
	source := make(chan []byte)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	go func() {
		source <- []byte("2\n")
	}()

	// Let the watcher pick the value up and block sending it on.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-out:
	case <-time.After(100 * time.Millisecond):
		t.Error("channel did not close after context cancel")
	}
}
