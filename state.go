package gram

// State represents the current state of a Controller.
type State int32

const (
	// StateUninitialized indicates the Controller has not been bound to a
	// setting yet and ignores its control.
	StateUninitialized State = iota

	// StateReady indicates the control shows the committed value and no
	// request is outstanding.
	StateReady

	// StateApplying indicates a request is outstanding with the writer.
	StateApplying

	// StateReverting indicates the control was programmatically restored
	// and the resulting notification has not been consumed yet.
	StateReverting

	// StateUnavailable indicates the initial feature read failed. The
	// control is insensitive and no listeners are installed.
	StateUnavailable
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateApplying:
		return "applying"
	case StateReverting:
		return "reverting"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
