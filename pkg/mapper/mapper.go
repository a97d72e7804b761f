package mapper

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Default mapper configuration values.
const (
	DefaultDedupWindow     = 2 * time.Second
	DefaultDuration        = 5 * time.Second
	DefaultWarningDuration = 8 * time.Second
	DefaultErrorDuration   = 12 * time.Second
	RestoredDuration       = 3 * time.Second
)

// EventSource is where the Mapper registers its listeners.
// *connection.Manager satisfies it.
type EventSource interface {
	AddEventListener(name string, h connection.Handler) connection.ListenerID
	RemoveEventListener(name string, id connection.ListenerID)
}

// Sink receives notification requests. *notify.Registry satisfies it.
type Sink interface {
	Add(req notify.Request) notify.ID
	Remove(id notify.ID)
}

// Config holds mapper settings.
type Config struct {
	// DedupWindow suppresses equivalent requests emitted within it.
	// Zero or negative disables de-duplication.
	DedupWindow time.Duration

	// Display durations by kind, used when a rule sets none.
	DefaultDuration time.Duration
	WarningDuration time.Duration
	ErrorDuration   time.Duration
}

// DefaultConfig returns the default mapper configuration.
func DefaultConfig() Config {
	return Config{
		DedupWindow:     DefaultDedupWindow,
		DefaultDuration: DefaultDuration,
		WarningDuration: DefaultWarningDuration,
		ErrorDuration:   DefaultErrorDuration,
	}
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Mapper) {
		m.logger = log.OrNoop(l)
	}
}

// WithRules adds rules to the catalog, replacing built-in rules with the
// same event name.
func WithRules(rules ...Rule) Option {
	return func(m *Mapper) {
		for _, r := range rules {
			m.rules[r.Event] = r
		}
	}
}

type registration struct {
	event string
	id    connection.ListenerID
}

// Mapper converts domain events into notifications.
type Mapper struct {
	src    EventSource
	sink   Sink
	cfg    Config
	logger log.Logger
	rules  map[string]Rule

	// recent remembers dedup keys for the length of the window.
	recent *cache.Cache

	mu        sync.Mutex
	regs      []registration
	closed    bool
	lostID    notify.ID
	expiredID notify.ID

	// pinned holds the live notice of each persistent rule by event and entity.
	pinned map[string]notify.ID
}

// New creates a Mapper and registers a listener on src for every rule.
func New(src EventSource, sink Sink, cfg Config, opts ...Option) *Mapper {
	def := DefaultConfig()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.WarningDuration <= 0 {
		cfg.WarningDuration = def.WarningDuration
	}
	if cfg.ErrorDuration <= 0 {
		cfg.ErrorDuration = def.ErrorDuration
	}

	m := &Mapper{
		src:    src,
		sink:   sink,
		cfg:    cfg,
		logger: log.NewNoopLogger(),
		rules:  make(map[string]Rule),
		pinned: make(map[string]notify.ID),
	}
	for _, r := range Catalog() {
		m.rules[r.Event] = r
	}
	for _, opt := range opts {
		opt(m)
	}
	if cfg.DedupWindow > 0 {
		m.recent = cache.New(cfg.DedupWindow, cfg.DedupWindow)
	}

	for event := range m.rules {
		id := src.AddEventListener(event, m.Handle)
		m.regs = append(m.regs, registration{event: event, id: id})
	}
	return m
}

// Handle maps one event. Unknown events and malformed payloads are dropped.
func (m *Mapper) Handle(ev connection.Event) {
	rule, ok := m.rules[ev.Name]
	if !ok {
		m.logger.Debug("no rule for event", log.String("event", ev.Name))
		return
	}

	fields, err := ev.Fields()
	if err != nil {
		m.logger.Debug("dropping event", log.String("event", ev.Name), log.Err(err))
		return
	}
	if name, missing := rule.missing(fields); missing {
		m.logger.Debug("dropping event",
			log.String("event", ev.Name),
			log.String("missing_field", name),
		)
		return
	}

	req := m.build(rule, ev, fields)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if rule.Clears != "" {
		m.unpinLocked(pinKey(rule.Clears, req.RelatedEntityID))
	}
	if m.duplicate(ev.Name, req) {
		m.logger.Debug("suppressing duplicate notification",
			log.String("event", ev.Name),
			log.String("entity", req.RelatedEntityID),
		)
		return
	}

	id := m.sink.Add(req)
	if rule.Persistent {
		key := pinKey(ev.Name, req.RelatedEntityID)
		m.unpinLocked(key)
		m.pinned[key] = id
	}
}

func pinKey(event, entity string) string {
	return event + "|" + entity
}

func (m *Mapper) unpinLocked(key string) {
	if id, ok := m.pinned[key]; ok {
		m.sink.Remove(id)
		delete(m.pinned, key)
	}
}

// build renders rule into a request and applies enrichment.
func (m *Mapper) build(rule Rule, ev connection.Event, fields map[string]any) notify.Request {
	req := notify.Request{
		Kind:       rule.Kind,
		Title:      rule.Title,
		Message:    render(rule.Message, fields),
		Priority:   rule.Priority,
		Category:   rule.Category,
		Persistent: rule.Persistent,
		Metadata: map[string]any{
			"event":      ev.Name,
			"payload":    fields,
			"receivedAt": ev.ReceivedAt,
		},
	}
	if rule.EntityField != "" {
		req.RelatedEntityID = stringValue(fields[rule.EntityField])
	}
	if !rule.Persistent {
		req.Duration = rule.Duration
		if req.Duration <= 0 {
			req.Duration = m.durationFor(rule.Kind)
		}
	}

	if actor := actorName(fields); actor != "" {
		req.Category = notify.CategoryCollaboration
		req.Message += " by " + actor
		req.Metadata["actor"] = actor
	}
	return req
}

func (m *Mapper) durationFor(k notify.Kind) time.Duration {
	switch k {
	case notify.KindError:
		return m.cfg.ErrorDuration
	case notify.KindWarning:
		return m.cfg.WarningDuration
	default:
		return m.cfg.DefaultDuration
	}
}

// duplicate reports whether an equivalent request was emitted within the
// window and records req otherwise. Requests without an entity are keyed by
// the event that produced them.
func (m *Mapper) duplicate(event string, req notify.Request) bool {
	if m.recent == nil {
		return false
	}
	subject := req.RelatedEntityID
	if subject == "" {
		subject = "event:" + event
	}
	key := strings.Join([]string{req.Category.String(), subject, req.Kind.String()}, "|")
	if _, found := m.recent.Get(key); found {
		return true
	}
	m.recent.Set(key, struct{}{}, cache.DefaultExpiration)
	return false
}

// actorName extracts the user who caused the event, if any.
func actorName(fields map[string]any) string {
	for _, key := range []string{"actor", "user"} {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if name := stringValue(v["name"]); name != "" {
				return name
			}
		}
	}
	return ""
}

// OnStateChange keeps the connection notices in line with the state.
func (m *Mapper) OnStateChange(prev, cur connection.State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	switch cur {
	case connection.StateReconnecting:
		if m.lostID != 0 {
			return
		}
		m.lostID = m.sink.Add(notify.Request{
			Kind:       notify.KindWarning,
			Title:      "Connection lost",
			Message:    "Live updates are paused. Reconnecting...",
			Priority:   notify.PriorityHigh,
			Category:   notify.CategorySystem,
			Persistent: true,
			Metadata:   map[string]any{"reason": reason},
		})
	case connection.StateOpen:
		if m.expiredID != 0 {
			m.sink.Remove(m.expiredID)
			m.expiredID = 0
		}
		if m.lostID == 0 {
			return
		}
		m.sink.Remove(m.lostID)
		m.lostID = 0
		m.sink.Add(notify.Request{
			Kind:     notify.KindSuccess,
			Title:    "Connection restored",
			Message:  "Live updates resumed",
			Priority: notify.PriorityNormal,
			Category: notify.CategorySystem,
			Duration: RestoredDuration,
		})
	case connection.StateClosed:
		if m.lostID != 0 {
			m.sink.Remove(m.lostID)
			m.lostID = 0
		}
	}
}

// OnAuthFailure shows a single session notice until the next successful
// connect.
func (m *Mapper) OnAuthFailure(err error, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.expiredID != 0 {
		return
	}

	title, msg := "Authentication failed", "The server rejected the credential. Sign in again to resume live updates."
	if errors.Is(err, connection.ErrTokenExpired) {
		title, msg = "Session expired", "Your session has expired. Sign in again to resume live updates."
	}
	m.expiredID = m.sink.Add(notify.Request{
		Kind:       notify.KindError,
		Title:      title,
		Message:    msg,
		Priority:   notify.PriorityUrgent,
		Category:   notify.CategorySystem,
		Persistent: true,
		Metadata: map[string]any{
			"error":    err.Error(),
			"attempts": attempts,
		},
	})
}

// Close removes the listeners. Later events and state changes are ignored.
func (m *Mapper) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	regs := m.regs
	m.regs = nil
	m.mu.Unlock()

	for _, r := range regs {
		m.src.RemoveEventListener(r.event, r.id)
	}
	if m.recent != nil {
		m.recent.Flush()
	}
}

var (
	_ connection.StateObserver       = (*Mapper)(nil)
	_ connection.AuthFailureObserver = (*Mapper)(nil)
)
