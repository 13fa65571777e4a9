package gram

import (
	"sync"
	"time"
)

// Failure is one failed request kept in a controller's error history.
type Failure struct {
	Setting string
	Value   string
	Err     error
	At      time.Time
}

// failureRing is a thread-safe ring buffer of recent failures.
type failureRing struct {
	mu       sync.RWMutex
	failures []Failure
	head     int
	count    int
}

// newFailureRing creates a ring with the given capacity. A size of 0
// disables the history.
func newFailureRing(size int) *failureRing {
	if size <= 0 {
		return nil
	}
	return &failureRing{failures: make([]Failure, size)}
}

func (r *failureRing) push(f Failure) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[r.head] = f
	r.head = (r.head + 1) % len(r.failures)
	if r.count < len(r.failures) {
		r.count++
	}
}

// all returns the retained failures, oldest first.
func (r *failureRing) all() []Failure {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}
	size := len(r.failures)
	out := make([]Failure, r.count)
	start := (r.head - r.count + size) % size
	for i := range out {
		out[i] = r.failures[(start+i)%size]
	}
	return out
}
