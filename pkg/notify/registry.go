package notify

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/livefeed/pkg/log"
)

// Subscriber receives the full ordered list after every mutation.
// The slice is a private copy; the Notifications must be treated as read-only.
type Subscriber func([]Notification)

// CuePlayer plays a short audio cue for a newly added notification.
type CuePlayer interface {
	PlayCue(kind Kind, priority Priority)
}

type subscription struct {
	id     uint64
	fn     Subscriber
	active atomic.Bool
}

// Registry is the process-wide ordered collection of active notifications.
// Construct one per application and inject it into its consumers.
// All methods are safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	seq    uint64
	items  []Notification // replaced, never mutated in place, once published
	timers map[ID]Timer

	subs   []*subscription
	subSeq uint64

	pending    [][]Notification
	delivering bool
	closed     bool

	clock      Clock
	logger     log.Logger
	cues       CuePlayer
	maxVisible int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source used for CreatedAt and expiry timers.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithRegistryLogger sets the logger. Defaults to a no-op logger.
func WithRegistryLogger(l log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = log.OrNoop(l)
	}
}

// WithCuePlayer plays an audio cue for every added notification.
func WithCuePlayer(p CuePlayer) RegistryOption {
	return func(r *Registry) {
		r.cues = p
	}
}

// WithMaxVisible caps the number of entries. When the cap is exceeded the
// oldest non-persistent entry is removed. Zero disables the cap.
func WithMaxVisible(n int) RegistryOption {
	return func(r *Registry) {
		r.maxVisible = max(n, 0)
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		timers: make(map[ID]Timer),
		clock:  realClock{},
		logger: log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add admits req, starts its expiry timer when applicable, notifies
// subscribers, and returns the assigned id. Add on a closed Registry returns 0.
func (r *Registry) Add(req Request) ID {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}

	r.seq++
	id := ID(r.seq)
	now := r.clock.Now()

	if req.Metadata != nil {
		req.Metadata = maps.Clone(req.Metadata)
	}
	n := Notification{
		Request:   req,
		ID:        id,
		CreatedAt: now,
		Visible:   true,
	}
	if !req.Persistent && req.Duration > 0 {
		expiresAt := now.Add(req.Duration)
		n.ExpiresAt = &expiresAt
		r.timers[id] = r.clock.AfterFunc(req.Duration, func() { r.expire(id) })
	}

	next := make([]Notification, 0, len(r.items)+1)
	next = append(next, r.items...)
	next = append(next, n)
	r.items = r.evictLocked(next)

	r.logger.Debug("notification added",
		log.Stringer("id", id),
		log.Stringer("kind", req.Kind),
		log.Stringer("category", req.Category),
		log.Duration("duration", req.Duration),
		log.Bool("persistent", req.Persistent),
	)

	cues := r.cues
	r.publishLocked()

	if cues != nil {
		cues.PlayCue(req.Kind, req.Priority)
	}
	return id
}

// Remove deletes the notification with the given id and stops its timer.
// Unknown ids, including already removed ones, are ignored.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	r.stopTimerLocked(id)
	r.items = slices.Concat(r.items[:i], r.items[i+1:])
	r.logger.Debug("notification removed", log.Stringer("id", id))
	r.publishLocked()
}

// Update merges p into the notification with the given id without touching
// its expiry timer. It reports whether the id was present.
func (r *Registry) Update(id ID, p Patch) bool {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	next := slices.Clone(r.items)
	next[i] = p.apply(next[i])
	r.items = next
	r.publishLocked()
	return true
}

// Clear stops every timer, removes every notification, persistent ones
// included, and notifies subscribers once.
func (r *Registry) Clear() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	for id := range r.timers {
		r.stopTimerLocked(id)
	}
	r.items = nil
	r.publishLocked()
}

// Subscribe registers fn for every subsequent mutation. It does not call fn
// with the current state; use Snapshot for that. The returned function
// deregisters fn and is safe to call more than once.
func (r *Registry) Subscribe(fn Subscriber) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || fn == nil {
		return func() {}
	}

	r.subSeq++
	s := &subscription{id: r.subSeq, fn: fn}
	s.active.Store(true)
	r.subs = append(slices.Clone(r.subs), s)

	return func() { r.unsubscribe(s) }
}

func (r *Registry) unsubscribe(s *subscription) {
	if !s.active.Swap(false) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = slices.DeleteFunc(slices.Clone(r.subs), func(x *subscription) bool { return x == s })
}

// Snapshot returns a copy of the current ordered list.
func (r *Registry) Snapshot() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Get returns the notification with the given id.
func (r *Registry) Get(id ID) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return Notification{}, false
	}
	return r.items[i], true
}

// Len returns the number of active notifications.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close stops all timers and drops all subscribers without notifying them.
// Subsequent mutations are ignored.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id := range r.timers {
		r.stopTimerLocked(id)
	}
	for _, s := range r.subs {
		s.active.Store(false)
	}
	r.subs = nil
	r.items = nil
	r.pending = nil
}

func (r *Registry) expire(id ID) {
	r.logger.Debug("notification expired", log.Stringer("id", id))
	r.Remove(id)
}

func (r *Registry) indexLocked(id ID) int {
	return slices.IndexFunc(r.items, func(n Notification) bool { return n.ID == id })
}

func (r *Registry) stopTimerLocked(id ID) {
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
}

// evictLocked enforces maxVisible on a freshly built list whose last entry
// is the one just added; that entry is never evicted.
func (r *Registry) evictLocked(list []Notification) []Notification {
	for r.maxVisible > 0 && len(list) > r.maxVisible {
		i := slices.IndexFunc(list[:len(list)-1], func(n Notification) bool { return !n.Persistent })
		if i < 0 {
			break
		}
		r.stopTimerLocked(list[i].ID)
		r.logger.Debug("notification evicted", log.Stringer("id", list[i].ID))
		list = slices.Delete(list, i, i+1)
	}
	return list
}

// publishLocked queues the current list for delivery. It must be called with
// r.mu held and returns with r.mu released. Only one goroutine delivers at a
// time; snapshots queued meanwhile, including from inside subscribers, are
// delivered by that goroutine in order.
func (r *Registry) publishLocked() {
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, r.items)
	if r.delivering {
		r.mu.Unlock()
		return
	}

	r.delivering = true
	for len(r.pending) > 0 {
		snap := r.pending[0]
		r.pending = r.pending[1:]
		subs := r.subs
		r.mu.Unlock()

		for _, s := range subs {
			if s.active.Load() {
				r.deliver(s, snap)
			}
		}

		r.mu.Lock()
	}
	r.delivering = false
	r.pending = nil
	r.mu.Unlock()
}

func (r *Registry) deliver(s *subscription, snap []Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("subscriber panicked",
				log.Uint64("subscriber", s.id),
				log.Any("panic", rec),
			)
		}
	}()
	s.fn(slices.Clone(snap))
}
