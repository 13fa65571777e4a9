package gram

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher_EmitsInitialAndChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FnLock)
	if err := os.WriteFile(path, []byte("0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := NewFeatureWatcher(NewStore(dir), FnLock).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	select {
	case v := <-out:
		if string(v) != "0\n" {
			t.Errorf("expected initial contents, got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial contents")
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, FanMode), []byte("2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-out:
			if string(v) == "1\n" {
				return
			}
			if string(v) != "" && string(v) != "0\n" {
				t.Fatalf("unexpected contents %q", v)
			}
		case <-deadline:
			t.Fatal("timeout waiting for change")
		}
	}
}

func TestFileWatcher_MissingFile(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "absent")).Watch(context.Background())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileWatcher_ClosesOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), USBCharge)
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	<-out
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			// A late event may slip through; the next receive must close.
			if _, ok := <-out; ok {
				t.Error("expected channel to close")
			}
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for close")
	}
}
