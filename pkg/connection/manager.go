package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/livefeed/pkg/log"
)

// Default manager configuration values.
const (
	DefaultDialTimeout     = 10 * time.Second
	DefaultMaxAuthFailures = 3
)

// Config holds the reconnect policy of a Manager.
type Config struct {
	// BackoffInitial is the delay before the first retry.
	BackoffInitial time.Duration

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration

	// BackoffJitter is the fraction of the nominal delay that may be
	// subtracted at random. Range [0, 1].
	BackoffJitter float64

	// DialTimeout bounds a single dial attempt.
	DialTimeout time.Duration

	// MaxAuthFailures closes the manager after this many consecutive
	// authentication failures. Zero retries forever.
	MaxAuthFailures int
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		BackoffInitial:  DefaultBackoffInitial,
		BackoffMax:      DefaultBackoffMax,
		BackoffJitter:   DefaultBackoffJitter,
		DialTimeout:     DefaultDialTimeout,
		MaxAuthFailures: DefaultMaxAuthFailures,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) {
		m.logger = log.OrNoop(l)
	}
}

// WithObserver registers a state observer. If it also implements
// AuthFailureObserver it is told about rejected credentials, and if it
// implements RetryObserver about every scheduled retry.
func WithObserver(o StateObserver) Option {
	return func(m *Manager) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// WithNow overrides the time source used for token checks and event stamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// ListenerID identifies a registered listener.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Handler
}

// Manager maintains a single live transport, reconnecting with backoff, and
// dispatches parsed events to listeners.
type Manager struct {
	dialer    Dialer
	cfg       Config
	logger    log.Logger
	observers []StateObserver
	now       func() time.Time

	mu           sync.Mutex
	state        State
	token        string
	gen          uint64
	conn         Conn
	retry        *time.Timer
	runCtx       context.Context
	cancelRun    context.CancelFunc
	backoff      *Backoff
	authFailures int

	lmu       sync.RWMutex
	listeners map[string][]listener
	nextID    ListenerID

	// dispatchMu serializes handler invocations across transports.
	dispatchMu sync.Mutex
}

// NewManager creates a Manager in the Idle state.
func NewManager(d Dialer, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.MaxAuthFailures < 0 {
		cfg.MaxAuthFailures = 0
	}

	m := &Manager{
		dialer:    d,
		cfg:       cfg,
		logger:    log.NewNoopLogger(),
		now:       time.Now,
		state:     StateIdle,
		backoff:   NewBackoff(cfg.BackoffInitial, cfg.BackoffMax, cfg.BackoffJitter),
		listeners: make(map[string][]listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the server with token and blocks until the transport is open
// or the attempt fails. It is a no-op when already open. While Reconnecting
// it cancels the pending retry and dials immediately.
//
// On failure the returned error is the dial error and the manager keeps
// retrying in the background unless the auth policy closed it.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	case StateIdle, StateClosed:
		m.backoff.Reset()
		m.authFailures = 0
	}

	m.stopRetryLocked()
	if m.cancelRun == nil {
		m.runCtx, m.cancelRun = context.WithCancel(context.Background())
	}
	m.token = token
	gen, events := m.beginAttemptLocked("connect requested")
	runCtx := m.runCtx
	m.mu.Unlock()

	m.emit(events)
	return m.attempt(ctx, runCtx, gen, token)
}

// Reconnect replaces the live transport with one dialed using token. The old
// transport is torn down before the new dial starts. It returns ErrClosed
// when the manager is not running; the token is kept for the next Connect.
func (m *Manager) Reconnect(ctx context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	if m.state == StateIdle || m.state == StateClosed {
		m.mu.Unlock()
		return ErrClosed
	}

	m.stopRetryLocked()
	old := m.conn
	m.conn = nil
	m.backoff.Reset()
	m.authFailures = 0
	gen, events := m.beginAttemptLocked("credential rotated")
	runCtx := m.runCtx
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	m.emit(events)
	return m.attempt(ctx, runCtx, gen, token)
}

// Disconnect closes the transport, cancels any pending retry or in-flight
// dial, and moves to Closed. Late dial results and reads are discarded.
// Listeners stay registered. Calling Disconnect again is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	m.gen++
	m.stopRetryLocked()
	conn := m.conn
	m.conn = nil
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun, m.runCtx = nil, nil
	}
	events := m.transitionLocked(nil, StateClosed, "disconnect requested")
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.emit(events)
}

// AddEventListener registers h for events named name. Use AnyEvent to
// receive every event. Listeners for the same name run in registration order.
func (m *Manager) AddEventListener(name string, h Handler) ListenerID {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners[name] = append(m.listeners[name], listener{id: id, fn: h})
	return id
}

// RemoveEventListener unregisters a listener. Unknown ids are ignored.
func (m *Manager) RemoveEventListener(name string, id ListenerID) {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	list := m.listeners[name]
	for i, l := range list {
		if l.id != id {
			continue
		}
		next := make([]listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(m.listeners, name)
		} else {
			m.listeners[name] = next
		}
		return
	}
}

// attempt performs one dial for generation gen.
func (m *Manager) attempt(ctx, runCtx context.Context, gen uint64, token string) error {
	logger := log.With(m.logger, log.String("attempt_id", uuid.NewString()))
	logger.Debug("dialing")

	if err := checkToken(token, m.now()); err != nil {
		return m.fail(logger, gen, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	if runCtx != nil {
		stop := context.AfterFunc(runCtx, cancel)
		defer stop()
	}

	conn, err := m.dialer.Dial(dialCtx, token)

	m.mu.Lock()
	if gen != m.gen {
		closed := m.state == StateClosed
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		logger.Debug("discarding stale dial result")
		if closed {
			return ErrClosed
		}
		return ErrSuperseded
	}
	if err != nil {
		m.mu.Unlock()
		return m.fail(logger, gen, err)
	}

	m.conn = conn
	m.backoff.Reset()
	m.authFailures = 0
	events := m.transitionLocked(nil, StateOpen, "connected")
	m.mu.Unlock()

	logger.Info("connection open")
	m.emit(events)
	go m.readLoop(gen, conn)
	return nil
}

// fail records a failed attempt or a dropped transport for generation gen
// and schedules the next retry. It returns err.
func (m *Manager) fail(logger log.Logger, gen uint64, err error) error {
	auth := errors.Is(err, ErrUnauthorized)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return err
	}

	var (
		events   []transition
		attempts int
	)
	if auth {
		m.authFailures++
		attempts = m.authFailures
	} else {
		m.authFailures = 0
	}

	if auth && m.cfg.MaxAuthFailures > 0 && m.authFailures >= m.cfg.MaxAuthFailures {
		m.gen++
		if m.cancelRun != nil {
			m.cancelRun()
			m.cancelRun, m.runCtx = nil, nil
		}
		events = m.transitionLocked(events, StateClosed, "authentication failed")
		m.mu.Unlock()

		logger.Error("giving up after repeated authentication failures",
			log.Err(err),
			log.Int("attempts", attempts),
		)
		m.emit(events)
		m.emitAuthFailure(err, attempts)
		return err
	}

	delay := m.backoff.Next()
	failures := m.backoff.Attempts()
	events = m.transitionLocked(events, StateReconnecting, err.Error())
	m.mu.Unlock()

	logger.Warn("connection attempt failed, retrying",
		log.Err(err),
		log.Duration("delay", delay),
		log.Int("failures", failures),
	)
	m.emit(events)
	if auth {
		m.emitAuthFailure(err, attempts)
	}
	m.emitRetry(delay, failures)

	// The timer is armed after observers ran so they see transitions in order.
	m.mu.Lock()
	if gen == m.gen && m.state == StateReconnecting && m.retry == nil {
		m.retry = time.AfterFunc(delay, func() { m.retryAttempt(gen) })
	}
	m.mu.Unlock()
	return err
}

// retryAttempt runs when a backoff timer fires.
func (m *Manager) retryAttempt(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.retry = nil
	next, events := m.beginAttemptLocked("retry")
	token, runCtx := m.token, m.runCtx
	m.mu.Unlock()

	m.emit(events)
	_ = m.attempt(runCtx, runCtx, next, token)
}

// readLoop reads frames from conn until it fails, dispatching each one.
func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.drop(gen, conn, err)
			return
		}

		ev, err := ParseMessage(data, m.now())
		if err != nil {
			m.logger.Debug("dropping frame", log.Err(err), log.Int("bytes", len(data)))
			continue
		}
		m.dispatch(gen, ev)
	}
}

// drop handles a transport that stopped delivering frames.
func (m *Manager) drop(gen uint64, conn Conn, cause error) {
	_ = conn.Close()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.mu.Unlock()

	_ = m.fail(m.logger, gen, fmt.Errorf("transport closed: %w", cause))
}

func (m *Manager) dispatch(gen uint64, ev Event) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	if !m.current(gen) {
		return
	}

	m.lmu.RLock()
	list := append([]listener(nil), m.listeners[ev.Name]...)
	if ev.Name != AnyEvent {
		list = append(list, m.listeners[AnyEvent]...)
	}
	m.lmu.RUnlock()

	for _, l := range list {
		// A handler may have disconnected or replaced the transport.
		if !m.current(gen) {
			return
		}
		m.invoke(l, ev)
	}
}

// current reports whether gen is still the live generation.
func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) invoke(l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event listener panicked",
				log.String("event", ev.Name),
				log.Uint64("listener", uint64(l.id)),
				log.Any("panic", r),
			)
		}
	}()
	l.fn(ev)
}

// beginAttemptLocked starts a new attempt generation and moves to Connecting.
func (m *Manager) beginAttemptLocked(reason string) (uint64, []transition) {
	m.gen++
	if m.state == StateConnecting {
		return m.gen, nil
	}
	return m.gen, m.transitionLocked(nil, StateConnecting, reason)
}

// transitionLocked moves to state to and appends the change to events.
// Invalid transitions are logged and ignored.
func (m *Manager) transitionLocked(events []transition, to State, reason string) []transition {
	from := m.state
	if from == to {
		return events
	}
	if !canTransition(from, to) {
		m.logger.Warn("invalid state transition",
			log.String("from", from.String()),
			log.String("to", to.String()),
		)
		return events
	}
	m.state = to
	return append(events, transition{from: from, to: to, reason: reason})
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

// emit notifies observers outside of the lock.
func (m *Manager) emit(events []transition) {
	for _, t := range events {
		m.logger.Info("state transition",
			log.String("from", t.from.String()),
			log.String("to", t.to.String()),
			log.String("reason", t.reason),
		)
		for _, o := range m.observers {
			o.OnStateChange(t.from, t.to, t.reason)
		}
	}
}

func (m *Manager) emitRetry(delay time.Duration, failures int) {
	for _, o := range m.observers {
		if r, ok := o.(RetryObserver); ok {
			r.OnRetryScheduled(delay, failures)
		}
	}
}

func (m *Manager) emitAuthFailure(err error, attempts int) {
	for _, o := range m.observers {
		if a, ok := o.(AuthFailureObserver); ok {
			a.OnAuthFailure(err, attempts)
		}
	}
}
