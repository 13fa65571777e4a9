package gram

import "sync"

// Control is the boundary to a user-facing selection widget. Implementations
// notify listeners whenever the selection changes, whether the change came
// from the user or from SetSelected. Like most toolkits, setting the value it
// already holds does not notify.
type Control interface {
	Selected() int
	SetSelected(index int)
	SetSensitive(sensitive bool)
	OnChanged(fn func())
}

// Toggle is the boundary to a two-state widget such as the "persistent"
// button coupled to a feature.
type Toggle interface {
	Active() bool
	SetActive(active bool)
	SetSensitive(sensitive bool)
	OnToggled(fn func())
}

// Selector is an in-memory Control.
type Selector struct {
	mu        sync.Mutex
	selected  int
	sensitive bool
	listeners []func()
}

// NewSelector creates a Selector at index 0.
func NewSelector() *Selector {
	return &Selector{sensitive: true}
}

// Selected returns the current index.
func (s *Selector) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SetSelected moves the selection and notifies listeners if it changed.
func (s *Selector) SetSelected(index int) {
	s.mu.Lock()
	if s.selected == index {
		s.mu.Unlock()
		return
	}
	s.selected = index
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Sensitive reports whether the selector accepts input.
func (s *Selector) Sensitive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitive
}

// SetSensitive enables or disables the selector.
func (s *Selector) SetSensitive(sensitive bool) {
	s.mu.Lock()
	s.sensitive = sensitive
	s.mu.Unlock()
}

// OnChanged registers a change listener.
func (s *Selector) OnChanged(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Switch is an in-memory Toggle.
type Switch struct {
	mu        sync.Mutex
	active    bool
	sensitive bool
	listeners []func()
}

// NewSwitch creates an inactive Switch.
func NewSwitch() *Switch {
	return &Switch{sensitive: true}
}

// Active reports the switch position.
func (s *Switch) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive flips the switch and notifies listeners if it changed.
func (s *Switch) SetActive(active bool) {
	s.mu.Lock()
	if s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Sensitive reports whether the switch accepts input.
func (s *Switch) Sensitive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitive
}

// SetSensitive enables or disables the switch.
func (s *Switch) SetSensitive(sensitive bool) {
	s.mu.Lock()
	s.sensitive = sensitive
	s.mu.Unlock()
}

// OnToggled registers a toggle listener.
func (s *Switch) OnToggled(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
