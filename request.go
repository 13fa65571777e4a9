package gram

// Persistence says what a feature request does to the companion unit.
type Persistence int

const (
	// PersistUnchanged keeps persistence as it was: if any unit of the
	// setting was enabled, the new value's unit takes over.
	PersistUnchanged Persistence = iota

	// PersistEnable enables the new value's unit after the write.
	PersistEnable

	// PersistDisable disables every unit of the setting before the write.
	PersistDisable
)

// String returns the string representation of the persistence mode.
func (p Persistence) String() string {
	switch p {
	case PersistUnchanged:
		return "unchanged"
	case PersistEnable:
		return "enable"
	case PersistDisable:
		return "disable"
	default:
		return "unknown"
	}
}

// Request asks the writer to set one feature. It is built from a user
// interaction and consumed once.
type Request struct {
	ID      string
	Value   string
	Persist Persistence
}

// Argument renders the request's "setting=value" command-line argument.
func (r Request) Argument() string {
	return r.ID + "=" + r.Value
}
