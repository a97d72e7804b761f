package livefeed

import (
	"sync"

	"github.com/bft-labs/livefeed/pkg/log"
)

// State is the lifecycle state of a Livefeed instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// lifecycleEmitter is called when the lifecycle state changes.
type lifecycleEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// lifecycle guards the Start/Stop state machine.
//
// Valid transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopped
//   - Running -> Stopping
//   - Stopping -> Closed
type lifecycle struct {
	mu      sync.RWMutex
	state   State
	logger  log.Logger
	emitter lifecycleEmitter
}

func newLifecycle(logger log.Logger, emitter lifecycleEmitter) *lifecycle {
	return &lifecycle{
		state:   StateStopped,
		logger:  log.OrNoop(logger),
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
func (l *lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	switch oldState {
	case StateStopped:
		if newState != StateStarting {
			l.mu.Unlock()
			return ErrNotRunning
		}
	case StateStarting:
		if newState != StateRunning && newState != StateStopped {
			l.mu.Unlock()
			return ErrAlreadyRunning
		}
	case StateRunning:
		if newState != StateStopping {
			l.mu.Unlock()
			return ErrAlreadyRunning
		}
	case StateStopping:
		if newState != StateClosed {
			l.mu.Unlock()
			return ErrAlreadyRunning
		}
	case StateClosed:
		l.mu.Unlock()
		return ErrClosed
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.emitter != nil {
		l.emitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("lifecycle transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// CanStart returns true if Start() can be called.
func (l *lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped
}

// CanStop returns true if Stop() can be called.
func (l *lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning
}
