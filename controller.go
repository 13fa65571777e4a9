package gram

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for watched changes.
const DefaultDebounce = 100 * time.Millisecond

// Controller keeps one control consistent with a setting's value in the
// feature store while changes are applied asynchronously by an Applier.
//
// User changes are applied optimistically: the control keeps the user's
// choice while the request is outstanding. On success the value is
// committed; on failure the control is restored to the last committed
// value and the change notification caused by that restoration is
// swallowed so it does not issue another request.
//
// Requests are serialized per controller by default. A change that arrives
// while a request is in flight is queued, replacing any change queued
// before it, and is issued once the in-flight request completes.
type Controller struct {
	applier Applier
	store   FeatureReader
	control Control

	toggle     Toggle
	companions Companions

	onError      func(context.Context, error)
	dispatch     func(func())
	syncMode     bool
	serialize    bool
	debounce     time.Duration
	clock        clockz.Clock
	metrics      MetricsProvider
	errorHistory *failureRing

	state     atomic.Int32
	lastError atomic.Pointer[error]

	mu               sync.Mutex
	ctx              context.Context
	setting          Setting
	bound            bool
	toggleWired      bool
	committed        int
	seq              uint64
	inflight         bool
	pending          int
	reverting        bool
	persistReverting bool
}

// call is one issued feature request.
type call struct {
	ctx   context.Context
	seq   uint64
	index int
	req   Request
}

// New creates a Controller for control. It stays inert until Init binds it
// to a setting.
//
// Example:
//
//	selector := gram.NewSelector()
//	ctrl := gram.New(cfg.Applier(), cfg.Store(), selector).
//	    OnError(func(_ context.Context, err error) { toast(err) })
//
//	if err := ctrl.Init(ctx, gram.BatteryCareLimit); err != nil {
//	    log.Printf("battery limit unavailable: %v", err)
//	}
func New(applier Applier, store FeatureReader, control Control) *Controller {
	c := &Controller{
		applier:   applier,
		store:     store,
		control:   control,
		serialize: true,
		debounce:  DefaultDebounce,
		clock:     clockz.RealClock,
		pending:   -1,
	}
	c.state.Store(int32(StateUninitialized))
	return c
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Persistence couples a "persistent across reboot" toggle to the feature.
// The toggle reflects whether the committed value's companion unit is
// enabled. Must be called before Init().
func (c *Controller) Persistence(toggle Toggle, companions Companions) *Controller {
	c.toggle = toggle
	c.companions = companions
	return c
}

// OnError sets the function that surfaces errors to the user.
// Must be called before Init().
func (c *Controller) OnError(fn func(context.Context, error)) *Controller {
	c.onError = fn
	return c
}

// Dispatch sets the function used to run completions, typically a post to
// the UI thread. Without it, completions run on the goroutine that waited
// for the applier, which is only safe in SyncMode or when nothing else
// touches the control: a restoration arms the reverting flag and then moves
// the control, and a user change landing in between is swallowed and
// overwritten. Real toolkits must set it. Must be called before Init().
func (c *Controller) Dispatch(fn func(func())) *Controller {
	c.dispatch = fn
	return c
}

// SyncMode runs applier calls inline on the notifying goroutine, making
// tests deterministic. Must be called before Init().
func (c *Controller) SyncMode() *Controller {
	c.syncMode = true
	return c
}

// Serialize controls whether at most one request is in flight. With
// serialization off every change issues a request immediately and only the
// newest request's completion reconciles the control. Default: on.
// Must be called before Init().
func (c *Controller) Serialize(on bool) *Controller {
	c.serialize = on
	return c
}

// Debounce sets how long Watch waits for changes to settle before
// re-reading the store. Default: 100ms. Must be called before Watch().
func (c *Controller) Debounce(d time.Duration) *Controller {
	c.debounce = d
	return c
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
func (c *Controller) Clock(clock clockz.Clock) *Controller {
	c.clock = clock
	return c
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Init().
func (c *Controller) Metrics(provider MetricsProvider) *Controller {
	c.metrics = provider
	return c
}

// ErrorHistorySize sets the number of recent failures to retain.
// Must be called before Init().
func (c *Controller) ErrorHistorySize(n int) *Controller {
	c.errorHistory = newFailureRing(n)
	return c
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// State returns the current state of the Controller.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Setting returns the bound setting and true, or false before Init.
func (c *Controller) Setting() (Setting, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setting, c.bound
}

// Committed returns the last committed choice.
func (c *Controller) Committed() (Choice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bound {
		return Choice{}, false
	}
	return c.setting.Choice(c.committed)
}

// Reverting reports whether a restoration notification is still expected.
func (c *Controller) Reverting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reverting
}

// LastError returns the last error encountered, or nil.
func (c *Controller) LastError() error {
	ptr := c.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent failures, oldest first, or nil when history
// is disabled.
func (c *Controller) ErrorHistory() []Failure {
	return c.errorHistory.all()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Init binds the controller to a setting and seeds the control from the
// feature store without issuing a request. If the value cannot be read the
// control (and the persistence toggle) are made insensitive, the error is
// surfaced and no listeners are installed; Init may then be retried.
//
// The binding is permanent: a second successful Init is refused.
func (c *Controller) Init(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.bound {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyBound, c.setting.ID)
	}
	c.mu.Unlock()

	setting, index, err := c.read(id)
	if err != nil {
		err = fmt.Errorf("failed to read %s value: %w", id, err)
		c.control.SetSensitive(false)
		if c.toggle != nil {
			c.toggle.SetSensitive(false)
		}
		c.setError(err)
		c.transition(ctx, id, StateUnavailable)
		capitan.Emit(ctx, ControllerInitFailed,
			KeySetting.Field(id),
			KeyError.Field(err.Error()),
		)
		c.report(ctx, err)
		return err
	}

	c.mu.Lock()
	c.ctx = ctx
	c.setting = setting
	c.bound = true
	c.committed = index
	c.pending = -1
	c.mu.Unlock()

	// Listeners are not installed yet, so seeding issues no request.
	c.control.SetSelected(index)
	c.control.SetSensitive(true)
	c.control.OnChanged(c.changed)

	if c.toggle != nil {
		value := setting.Choices[index].Value
		persistent, perr := c.companions.Persistent(ctx, setting, value)
		if perr != nil {
			c.toggle.SetSensitive(false)
			c.report(ctx, fmt.Errorf("failed to load %s service status: %w", id, perr))
		} else {
			c.toggle.SetActive(persistent)
			c.toggle.SetSensitive(!setting.IsDefault(value))
			c.mu.Lock()
			c.toggleWired = true
			c.mu.Unlock()
			c.toggle.OnToggled(c.toggled)
		}
	}

	c.lastError.Store(nil)
	c.transition(ctx, id, StateReady)
	capitan.Emit(ctx, ControllerBound,
		KeySetting.Field(id),
		KeyValue.Field(setting.Choices[index].Value),
	)
	return nil
}

// Refresh re-reads the feature store and moves the control to the value
// found there without issuing a request. It does nothing while a request is
// in flight or a restoration is pending; the completion re-reads the store
// itself.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.bound || c.inflight || c.reverting {
		c.mu.Unlock()
		return nil
	}
	setting := c.setting
	c.mu.Unlock()

	_, index, err := c.read(setting.ID)
	if err != nil {
		err = fmt.Errorf("failed to read %s value: %w", setting.ID, err)
		c.setError(err)
		return err
	}

	c.mu.Lock()
	moved := index != c.committed
	c.committed = index
	c.mu.Unlock()

	c.restore(ctx, setting, index, false)
	if moved {
		c.syncPersistence(ctx, setting, index)
		capitan.Emit(ctx, ControllerRefreshed,
			KeySetting.Field(setting.ID),
			KeyValue.Field(setting.Choices[index].Value),
		)
	}
	return nil
}

// Watch re-reads the feature store whenever watcher reports a change,
// debounced, until ctx is canceled. The watcher's payload is ignored: the
// store stays the single source of truth.
func (c *Controller) Watch(ctx context.Context, watcher Watcher) error {
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	go c.watch(ctx, changes)
	return nil
}

func (c *Controller) watch(ctx context.Context, changes <-chan []byte) {
	var (
		timer   clockz.Timer
		pending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case _, ok := <-changes:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				if pending {
					c.deliver(func() { _ = c.Refresh(ctx) }) //nolint:errcheck // Errors stored via setError
				}
				return
			}
			pending = true
			if timer == nil {
				timer = c.clock.NewTimer(c.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(c.debounce)
			}

		case <-timerC:
			if pending {
				c.deliver(func() { _ = c.Refresh(ctx) }) //nolint:errcheck // Errors stored via setError
				pending = false
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Feature control
// -----------------------------------------------------------------------------

// changed handles a change notification from the feature control.
func (c *Controller) changed() {
	index := c.control.Selected()

	c.mu.Lock()
	if c.reverting {
		// Consumed whatever caused it; a restoration that somehow did not
		// notify must not swallow more than one user change.
		c.reverting = false
		ctx, id := c.ctx, c.setting.ID
		c.mu.Unlock()
		c.suppressed(ctx, id, "feature")
		if c.State() == StateReverting {
			c.transition(ctx, id, StateReady)
		}
		return
	}

	if index == c.committed && !c.inflight {
		c.mu.Unlock()
		return
	}

	if c.serialize && c.inflight {
		c.pending = index
		ctx, setting := c.ctx, c.setting
		c.mu.Unlock()
		if choice, ok := setting.Choice(index); ok {
			capitan.Emit(ctx, ApplyCoalesced,
				KeySetting.Field(setting.ID),
				KeyValue.Field(choice.Value),
			)
		}
		return
	}

	ctx := c.ctx
	next, ok := c.issue(index)
	c.mu.Unlock()
	if !ok {
		c.report(ctx, fmt.Errorf("%w: no valid selection at index %d", ErrInvalidValue, index))
		return
	}
	c.run(next)
}

// issue builds the request for index. Caller holds c.mu.
func (c *Controller) issue(index int) (call, bool) {
	choice, ok := c.setting.Choice(index)
	if !ok {
		return call{}, false
	}
	c.seq++
	c.inflight = true
	return call{
		ctx:   c.ctx,
		seq:   c.seq,
		index: index,
		req:   Request{ID: c.setting.ID, Value: choice.Value},
	}, true
}

// run sends a request to the applier and delivers the completion.
func (c *Controller) run(next call) {
	c.transition(next.ctx, next.req.ID, StateApplying)
	capitan.Emit(next.ctx, ApplyRequested,
		KeySetting.Field(next.req.ID),
		KeyValue.Field(next.req.Value),
		KeySequence.Field(int(next.seq)), //nolint:gosec // sequence stays small
	)

	exec := func() {
		start := c.clock.Now()
		msg, err := c.applier.Apply(next.ctx, next.req)
		elapsed := c.clock.Since(start)
		c.deliver(func() { c.complete(next, msg, err, elapsed) })
	}

	if c.syncMode {
		exec()
		return
	}
	go exec()
}

// complete reconciles the control with the outcome of a request.
func (c *Controller) complete(done call, msg string, err error, elapsed time.Duration) {
	ctx, id := done.ctx, done.req.ID

	c.mu.Lock()
	if done.seq != c.seq {
		c.mu.Unlock()
		capitan.Emit(ctx, ApplyStale,
			KeySetting.Field(id),
			KeyValue.Field(done.req.Value),
			KeySequence.Field(int(done.seq)), //nolint:gosec // sequence stays small
		)
		if err != nil {
			c.setError(fmt.Errorf("%w: %v", ErrStale, err))
		}
		return
	}
	c.inflight = false
	pending := c.pending
	c.pending = -1
	setting := c.setting
	previous := c.committed
	c.mu.Unlock()

	// The store is the source of truth for what is now committed.
	observed := -1
	if _, index, rerr := c.read(id); rerr == nil {
		observed = index
	}

	if err == nil {
		committed := done.index
		if observed >= 0 {
			committed = observed
		}
		c.mu.Lock()
		c.committed = committed
		c.mu.Unlock()

		c.lastError.Store(nil)
		if c.metrics != nil {
			c.metrics.OnApplySuccess(id, elapsed)
		}
		capitan.Emit(ctx, ApplySucceeded,
			KeySetting.Field(id),
			KeyValue.Field(done.req.Value),
			KeyMessage.Field(msg),
			KeyDuration.Field(elapsed),
		)

		if c.next(pending, committed) {
			return
		}
		c.transition(ctx, id, StateReady)
		c.restore(ctx, setting, committed, false)
		c.syncPersistence(ctx, setting, committed)
		return
	}

	committed := previous
	if observed >= 0 {
		committed = observed
	}
	c.mu.Lock()
	c.committed = committed
	c.mu.Unlock()

	c.setError(err)
	c.errorHistory.push(Failure{Setting: id, Value: done.req.Value, Err: err, At: c.clock.Now()})
	if c.metrics != nil {
		c.metrics.OnApplyFailure(id, "feature", elapsed)
	}
	capitan.Emit(ctx, ApplyFailed,
		KeySetting.Field(id),
		KeyValue.Field(done.req.Value),
		KeyError.Field(err.Error()),
		KeyDuration.Field(elapsed),
	)

	// Persistence against a value we failed to set makes no sense.
	if c.toggle != nil {
		c.toggle.SetSensitive(false)
	}

	if c.next(pending, committed) {
		c.report(ctx, err)
		return
	}
	c.restore(ctx, setting, committed, true)
	c.report(ctx, err)
}

// next issues the queued change, if any, unless it matches the committed
// value. It reports whether a request was issued.
func (c *Controller) next(pending, committed int) bool {
	if pending < 0 || pending == committed {
		return false
	}
	c.mu.Lock()
	queued, ok := c.issue(pending)
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.run(queued)
	return true
}

// restore moves the control to index programmatically, arming the
// reverting flag so the resulting notification is swallowed. If the
// control already shows index no notification will come and the flag is
// left clear. Must run on the control's goroutine (see Dispatch).
func (c *Controller) restore(ctx context.Context, setting Setting, index int, revert bool) {
	if c.control.Selected() == index {
		if revert {
			c.transition(ctx, setting.ID, StateReady)
		}
		return
	}

	c.mu.Lock()
	c.reverting = true
	c.mu.Unlock()

	if revert {
		c.transition(ctx, setting.ID, StateReverting)
	}
	capitan.Emit(ctx, ControlReverted,
		KeySetting.Field(setting.ID),
		KeyValue.Field(setting.Choices[index].Value),
	)
	c.control.SetSelected(index)
}

// -----------------------------------------------------------------------------
// Persistence toggle
// -----------------------------------------------------------------------------

// toggled handles a notification from the persistence toggle.
func (c *Controller) toggled() {
	c.mu.Lock()
	if c.persistReverting {
		c.persistReverting = false
		ctx, id := c.ctx, c.setting.ID
		c.mu.Unlock()
		c.suppressed(ctx, id, "persistence")
		return
	}
	ctx, setting := c.ctx, c.setting
	c.mu.Unlock()

	on := c.toggle.Active()
	exec := func() {
		start := c.clock.Now()
		msg, err := c.applier.SetPersistent(ctx, setting.ID, on)
		elapsed := c.clock.Since(start)
		c.deliver(func() { c.persisted(ctx, setting, on, msg, err, elapsed) })
	}

	if c.syncMode {
		exec()
		return
	}
	go exec()
}

// persisted reconciles the toggle with the outcome of a persistence request.
func (c *Controller) persisted(ctx context.Context, setting Setting, on bool, msg string, err error, elapsed time.Duration) {
	if err == nil {
		capitan.Emit(ctx, PersistenceChanged,
			KeySetting.Field(setting.ID),
			KeyMessage.Field(msg),
			KeyDuration.Field(elapsed),
		)
		return
	}

	c.setError(err)
	c.errorHistory.push(Failure{Setting: setting.ID, Err: err, At: c.clock.Now()})
	if c.metrics != nil {
		c.metrics.OnApplyFailure(setting.ID, "persistence", elapsed)
	}
	capitan.Emit(ctx, PersistenceFailed,
		KeySetting.Field(setting.ID),
		KeyError.Field(err.Error()),
	)

	c.setToggle(!on)
	c.report(ctx, err)
}

// syncPersistence updates the toggle after the committed value moved. The
// default value has no companion unit, so the toggle is cleared and made
// insensitive there.
func (c *Controller) syncPersistence(ctx context.Context, setting Setting, index int) {
	c.mu.Lock()
	wired := c.toggleWired
	c.mu.Unlock()
	if c.toggle == nil || !wired {
		return
	}

	if setting.IsDefault(setting.Choices[index].Value) {
		c.setToggle(false)
		c.toggle.SetSensitive(false)
		return
	}

	if persistent, err := c.companions.Persistent(ctx, setting, setting.Choices[index].Value); err == nil {
		c.setToggle(persistent)
	}
	c.toggle.SetSensitive(true)
}

// setToggle moves the toggle programmatically with suppression.
func (c *Controller) setToggle(active bool) {
	if c.toggle.Active() == active {
		return
	}
	c.mu.Lock()
	c.persistReverting = true
	c.mu.Unlock()
	c.toggle.SetActive(active)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// read looks up id and maps its stored value to a choice index.
func (c *Controller) read(id string) (Setting, int, error) {
	setting, err := Lookup(id)
	if err != nil {
		return Setting{}, -1, err
	}
	value, err := c.store.Read(id)
	if err != nil {
		return Setting{}, -1, err
	}
	index := setting.Index(value)
	if index < 0 {
		return Setting{}, -1, fmt.Errorf("%w: unknown value %q", ErrInvalidValue, value)
	}
	return setting, index, nil
}

func (c *Controller) suppressed(ctx context.Context, id, control string) {
	if c.metrics != nil {
		c.metrics.OnSuppressed(id)
	}
	capitan.Emit(ctx, NotificationSuppressed,
		KeySetting.Field(id),
		KeyControl.Field(control),
	)
}

func (c *Controller) deliver(fn func()) {
	if c.dispatch != nil {
		c.dispatch(fn)
		return
	}
	fn()
}

func (c *Controller) report(ctx context.Context, err error) {
	if c.onError != nil {
		c.onError(ctx, err)
	}
}

// transition updates the state and emits a state change event if changed.
func (c *Controller) transition(ctx context.Context, id string, to State) {
	from := State(c.state.Swap(int32(to)))
	if from == to {
		return
	}
	capitan.Emit(ctx, ControllerStateChanged,
		KeySetting.Field(id),
		KeyOldState.Field(from.String()),
		KeyNewState.Field(to.String()),
	)
	if c.metrics != nil {
		c.metrics.OnStateChange(from, to)
	}
}

// setError stores an error atomically.
func (c *Controller) setError(err error) {
	e := err
	c.lastError.Store(&e)
}
