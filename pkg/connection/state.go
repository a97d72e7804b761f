package connection

import "time"

// State is the connection state of a session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateReconnecting:
		return "Reconnecting"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StateObserver is called after every state transition, outside the
// Manager's locks, in transition order for a given goroutine.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// AuthFailureObserver is implemented by observers that want to know about
// rejected credentials. attempts counts consecutive auth failures.
type AuthFailureObserver interface {
	OnAuthFailure(err error, attempts int)
}

// RetryObserver is implemented by observers that want to know when a retry
// is scheduled. failures counts attempts since the last successful open.
type RetryObserver interface {
	OnRetryScheduled(delay time.Duration, failures int)
}

// canTransition reports whether from -> to is a valid transition.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateConnecting
	case StateConnecting:
		return to == StateOpen || to == StateReconnecting || to == StateClosed
	case StateOpen:
		return to == StateReconnecting || to == StateConnecting || to == StateClosed
	case StateReconnecting:
		return to == StateConnecting || to == StateClosed
	case StateClosed:
		return to == StateConnecting
	}
	return false
}

type transition struct {
	from, to State
	reason   string
}
