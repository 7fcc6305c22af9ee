package moderation

// State is the verification lifecycle of a (chat, user) pair. Only
// Unverified has a persisted footprint (the pending kick job); reaching
// any terminal state deletes the job, so job existence discriminates
// Unverified from the terminals.
type State int

const (
	StateUnverified State = iota
	StateVerified
	StateDeparted
	StateRemoved
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateVerified:
		return "verified"
	case StateDeparted:
		return "departed"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Signal is an event driving the state machine: three external signals
// and the scheduler's internal timeout.
type Signal int

const (
	SignalConfirm Signal = iota
	SignalLeave
	SignalTimeout
)

// String implements fmt.Stringer.
func (s Signal) String() string {
	switch s {
	case SignalConfirm:
		return "confirm"
	case SignalLeave:
		return "leave"
	case SignalTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Next returns the state reached from s on sig and whether a transition
// occurred. Terminal states absorb every signal, which makes duplicate
// or racing signals safe no-ops rather than errors.
func Next(s State, sig Signal) (State, bool) {
	if s != StateUnverified {
		return s, false
	}
	switch sig {
	case SignalConfirm:
		return StateVerified, true
	case SignalLeave:
		return StateDeparted, true
	case SignalTimeout:
		return StateRemoved, true
	default:
		return s, false
	}
}
