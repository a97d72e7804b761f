package livefeed

import (
	"sync"

	"github.com/bft-labs/livefeed/pkg/connection"
)

// StateChangeEvent is emitted when the lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ConnectionChangeEvent is emitted when the connection state changes.
type ConnectionChangeEvent struct {
	Previous connection.State
	Current  connection.State
	Reason   string
}

// AuthFailureEvent is emitted when the server rejects the credential.
type AuthFailureEvent struct {
	Error    error
	Attempts int
}

// EventHandler receives pipeline events. Calls are synchronous and must
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnConnectionChange(event ConnectionChangeEvent)
	OnAuthFailure(event AuthFailureEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)           {}
func (BaseEventHandler) OnConnectionChange(ConnectionChangeEvent) {}
func (BaseEventHandler) OnAuthFailure(AuthFailureEvent)           {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}

// connectionObservers fans connection callbacks out to the mapper and the
// event handler. The list is fixed before the first Connect.
type connectionObservers struct {
	mu        sync.RWMutex
	observers []connection.StateObserver
	handler   EventHandler
}

func (c *connectionObservers) add(o connection.StateObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *connectionObservers) OnStateChange(previous, current connection.State, reason string) {
	c.mu.RLock()
	observers, handler := c.observers, c.handler
	c.mu.RUnlock()

	for _, o := range observers {
		o.OnStateChange(previous, current, reason)
	}
	if handler != nil {
		handler.OnConnectionChange(ConnectionChangeEvent{Previous: previous, Current: current, Reason: reason})
	}
}

func (c *connectionObservers) OnAuthFailure(err error, attempts int) {
	c.mu.RLock()
	observers, handler := c.observers, c.handler
	c.mu.RUnlock()

	for _, o := range observers {
		if a, ok := o.(connection.AuthFailureObserver); ok {
			a.OnAuthFailure(err, attempts)
		}
	}
	if handler != nil {
		handler.OnAuthFailure(AuthFailureEvent{Error: err, Attempts: attempts})
	}
}
