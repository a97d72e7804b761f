package audio

import (
	"context"
	"time"

	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// DefaultTimeout bounds a single playback.
const DefaultTimeout = 3 * time.Second

// Adapter turns notification kinds into cues and plays them on a Player.
// It satisfies notify.CuePlayer.
type Adapter struct {
	player  Player
	logger  log.Logger
	timeout time.Duration
	minimum notify.Priority
	async   bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l log.Logger) Option {
	return func(a *Adapter) { a.logger = log.OrNoop(l) }
}

// WithTimeout bounds each playback.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMinPriority mutes cues below p.
func WithMinPriority(p notify.Priority) Option {
	return func(a *Adapter) { a.minimum = p }
}

// WithSynchronous plays cues on the caller's goroutine. Intended for tests.
func WithSynchronous() Option {
	return func(a *Adapter) { a.async = false }
}

// NewAdapter creates an Adapter. A nil player disables playback.
func NewAdapter(player Player, opts ...Option) *Adapter {
	if player == nil {
		player = NoopPlayer{}
	}
	a := &Adapter{
		player:  player,
		logger:  log.NoopLogger{},
		timeout: DefaultTimeout,
		minimum: notify.PriorityNormal,
		async:   true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PlayCue plays the cue for kind, best effort.
func (a *Adapter) PlayCue(kind notify.Kind, priority notify.Priority) {
	if priority < a.minimum {
		return
	}
	cue, ok := CueFor(kind)
	if !ok {
		return
	}
	n := repeats(priority)
	if a.async {
		go a.play(cue, n)
		return
	}
	a.play(cue, n)
}

func (a *Adapter) play(cue Cue, times int) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Debug("audio backend panicked", log.String("cue", string(cue)), log.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	for i := 0; i < times; i++ {
		if err := a.player.Play(ctx, cue); err != nil {
			a.logger.Debug("audio cue failed", log.String("cue", string(cue)), log.Err(err))
			return
		}
	}
}

var _ notify.CuePlayer = (*Adapter)(nil)
