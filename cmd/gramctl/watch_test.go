package main

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestEventLoop_RunsPostsInOrderOnOneGoroutine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := newEventLoop()
	post := loop.post(ctx)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 5 {
		post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				cancel()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		loop.run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %v", got)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("expected events in post order, got %v", got)
			break
		}
	}
}

func TestEventLoop_PostAfterCancelDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop := &eventLoop{events: make(chan func())}
	returned := make(chan struct{})
	go func() {
		loop.post(ctx)(func() {})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("post blocked after cancel")
	}
}

func TestSignalWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := signalWatcher(ctx, syscall.SIGUSR1).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("expected a change after the signal")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("expected the channel to close after cancel")
		}
	}
}
