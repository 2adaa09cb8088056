package cache

// State is the MESI coherence state of a cache line.
type State uint8

// MESI states. The zero value is StateInvalid.
const (
	StateInvalid State = iota
	StateShared
	StateExclusive
	StateModified
)

// String returns the one-letter name of the state.
func (s State) String() string {
	switch s {
	case StateModified:
		return "M"
	case StateExclusive:
		return "E"
	case StateShared:
		return "S"
	case StateInvalid:
		return "I"
	default:
		return "?"
	}
}

// IsValid returns true if the line holds usable data.
func (s State) IsValid() bool {
	return s != StateInvalid
}

// IsOwned returns true if the state grants the only valid copy (M or E).
func (s State) IsOwned() bool {
	return s == StateModified || s == StateExclusive
}
