package gram

import "time"

// MetricsProvider receives callbacks on controller activity for integration
// with Prometheus, StatsD and similar systems.
type MetricsProvider interface {
	// OnStateChange is called when the controller transitions between states.
	OnStateChange(from, to State)

	// OnApplySuccess is called when the writer accepted a request.
	OnApplySuccess(setting string, duration time.Duration)

	// OnApplyFailure is called when a request failed. Kind is "feature" or
	// "persistence".
	OnApplyFailure(setting, kind string, duration time.Duration)

	// OnSuppressed is called when a self-inflicted notification is consumed.
	OnSuppressed(setting string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                    {}
func (NoOpMetricsProvider) OnApplySuccess(_ string, _ time.Duration)    {}
func (NoOpMetricsProvider) OnApplyFailure(_, _ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnSuppressed(_ string)                       {}
