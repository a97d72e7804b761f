package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures every snapshot delivered to a subscriber.
type recorder struct {
	mu    sync.Mutex
	snaps [][]Notification
}

func (r *recorder) fn(list []Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, list)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func ids(list []Notification) []ID {
	out := make([]ID, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}

func messages(list []Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Message)
	}
	return out
}

type cueRecorder struct {
	mu    sync.Mutex
	kinds []Kind
}

func (c *cueRecorder) PlayCue(kind Kind, priority Priority) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, kind)
}

func TestRegistry_AddThenExpire(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	id := reg.Add(Request{Message: "material M-1 completed", Duration: 3 * time.Second})

	n, ok := reg.Get(id)
	require.True(t, ok)
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, clock.Now().Add(3*time.Second), *n.ExpiresAt)
	assert.True(t, n.Visible)
	assert.Equal(t, 1, clock.Live())
	assert.Equal(t, 1, rec.count())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, reg.Len(), "must survive until the duration elapses")

	clock.Advance(time.Second)
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 2, rec.count(), "expiry notifies exactly once")
	assert.Empty(t, rec.last())
	assert.Equal(t, 0, clock.Live())

	// A later explicit remove of the expired id changes nothing.
	reg.Remove(id)
	assert.Equal(t, 2, rec.count())
}

func TestRegistry_IDsAreNeverReused(t *testing.T) {
	reg := NewRegistry()
	seen := map[ID]bool{}

	for i := 0; i < 50; i++ {
		id := reg.Add(Request{Message: "x"})
		require.False(t, seen[id], "id %s reused", id)
		seen[id] = true
		if i%2 == 0 {
			reg.Remove(id)
		}
	}
	reg.Clear()

	id := reg.Add(Request{Message: "after clear"})
	assert.False(t, seen[id])
	assert.Equal(t, "n-51", id.String())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))
	rec := &recorder{}

	id := reg.Add(Request{Message: "a", Duration: time.Minute})
	reg.Subscribe(rec.fn)

	reg.Remove(id)
	reg.Remove(id)

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, clock.Live(), "remove stops the timer")

	clock.Advance(time.Hour)
	assert.Equal(t, 1, rec.count(), "a stopped timer never fires")
}

func TestRegistry_RemoveMiddleKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	a := reg.Add(Request{Message: "A"})
	b := reg.Add(Request{Message: "B"})
	c := reg.Add(Request{Message: "C"})

	reg.Remove(b)

	assert.Equal(t, []string{"A", "C"}, messages(rec.last()))
	assert.Equal(t, []ID{a, c}, ids(rec.last()))
}

func TestRegistry_ClearRemovesPersistent(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	id := reg.Add(Request{Message: "X", Duration: 0, Persistent: true})
	n, ok := reg.Get(id)
	require.True(t, ok)
	assert.Nil(t, n.ExpiresAt)
	assert.Equal(t, 0, clock.Live())

	reg.Add(Request{Message: "Y", Duration: time.Second})
	before := rec.count()

	reg.Clear()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, before+1, rec.count(), "clear notifies once")
	assert.Empty(t, rec.last())
	assert.Equal(t, 0, clock.Live())
}

func TestRegistry_PersistentIgnoresDuration(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))

	id := reg.Add(Request{Message: "connection lost", Duration: time.Second, Persistent: true})
	clock.Advance(time.Hour)

	_, ok := reg.Get(id)
	assert.True(t, ok)
	assert.Equal(t, 0, clock.Live())
}

func TestRegistry_UpdateKeepsTimer(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	id := reg.Add(Request{
		Kind:     KindProgress,
		Message:  "parsing drawing",
		Duration: 10 * time.Second,
		Metadata: map[string]any{"drawing": "D-7"},
	})

	clock.Advance(6 * time.Second)
	prio := PriorityHigh
	progress := 150
	msg := "parsing drawing (60%)"
	ok := reg.Update(id, Patch{
		Message:  &msg,
		Priority: &prio,
		Progress: &progress,
		Metadata: map[string]any{"pages": 3},
	})
	require.True(t, ok)

	n, _ := reg.Get(id)
	assert.Equal(t, msg, n.Message)
	assert.Equal(t, PriorityHigh, n.Priority)
	assert.Equal(t, 100, n.Progress, "progress is clamped")
	assert.Equal(t, map[string]any{"drawing": "D-7", "pages": 3}, n.Metadata)
	assert.Equal(t, 1, clock.Live(), "update must not start a second timer")

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, reg.Len(), "expiry keeps the original deadline")

	assert.False(t, reg.Update(id, Patch{Message: &msg}))
}

func TestRegistry_RequestMetadataIsCopied(t *testing.T) {
	reg := NewRegistry()
	meta := map[string]any{"k": "v"}
	id := reg.Add(Request{Message: "m", Metadata: meta})

	meta["k"] = "changed"

	n, _ := reg.Get(id)
	assert.Equal(t, "v", n.Metadata["k"])
}

func TestRegistry_SubscribeDoesNotReplay(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Request{Message: "before"})

	rec := &recorder{}
	unsubscribe := reg.Subscribe(rec.fn)
	assert.Equal(t, 0, rec.count())

	reg.Add(Request{Message: "after"})
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"before", "after"}, messages(rec.last()))

	unsubscribe()
	unsubscribe()
	reg.Add(Request{Message: "ignored"})
	assert.Equal(t, 1, rec.count())
}

func TestRegistry_SnapshotsAreIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.Subscribe(func(list []Notification) {
		for i := range list {
			list[i].Message = "tampered"
		}
	})
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	id := reg.Add(Request{Message: "original"})

	assert.Equal(t, []string{"original"}, messages(rec.last()))
	n, _ := reg.Get(id)
	assert.Equal(t, "original", n.Message)
}

func TestRegistry_SubscriberPanicIsIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.Subscribe(func([]Notification) { panic("renderer failed") })
	rec := &recorder{}
	reg.Subscribe(rec.fn)

	assert.NotPanics(t, func() { reg.Add(Request{Message: "a"}) })
	assert.Equal(t, 1, rec.count())

	reg.Add(Request{Message: "b"})
	assert.Equal(t, []string{"a", "b"}, messages(rec.last()))
}

func TestRegistry_ReentrantMutationFromSubscriber(t *testing.T) {
	reg := NewRegistry()
	rec := &recorder{}

	var followUp ID
	reg.Subscribe(func(list []Notification) {
		for _, n := range list {
			if n.Message == "trigger" {
				reg.Remove(n.ID)
				followUp = reg.Add(Request{Message: "follow-up"})
				return
			}
		}
	})
	reg.Subscribe(rec.fn)

	keep := reg.Add(Request{Message: "keep"})
	reg.Add(Request{Message: "trigger"})

	// The second subscriber sees every pass in mutation order:
	// [keep], [keep trigger], [keep], [keep follow-up].
	require.Equal(t, 4, rec.count())
	assert.Equal(t, []string{"keep"}, messages(rec.snaps[0]))
	assert.Equal(t, []string{"keep", "trigger"}, messages(rec.snaps[1]))
	assert.Equal(t, []string{"keep"}, messages(rec.snaps[2]))
	assert.Equal(t, []string{"keep", "follow-up"}, messages(rec.snaps[3]))

	assert.Equal(t, []ID{keep, followUp}, ids(reg.Snapshot()))
}

func TestRegistry_UnsubscribeDuringDelivery(t *testing.T) {
	reg := NewRegistry()
	rec := &recorder{}

	var unsubscribeSecond func()
	reg.Subscribe(func([]Notification) { unsubscribeSecond() })
	unsubscribeSecond = reg.Subscribe(rec.fn)

	reg.Add(Request{Message: "a"})
	assert.Equal(t, 0, rec.count(), "unsubscribed callback must not run later in the same pass")
}

func TestRegistry_SubscribersNeverOverlap(t *testing.T) {
	reg := NewRegistry()
	var inFlight, overlaps, calls atomic.Int32
	reg.Subscribe(func([]Notification) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		calls.Add(1)
		time.Sleep(50 * time.Microsecond)
		inFlight.Add(-1)
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := reg.Add(Request{Message: "m"})
				if i%3 == 0 {
					reg.Remove(id)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlaps.Load())
	assert.Equal(t, int32(8*25+8*9), calls.Load())
	assert.Equal(t, 8*25-8*9, reg.Len())
}

func TestRegistry_MaxVisibleEvictsOldestNonPersistent(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock), WithMaxVisible(2))

	reg.Add(Request{Message: "pinned", Persistent: true})
	reg.Add(Request{Message: "old", Duration: time.Minute})
	reg.Add(Request{Message: "new", Duration: time.Minute})

	assert.Equal(t, []string{"pinned", "new"}, messages(reg.Snapshot()))
	assert.Equal(t, 1, clock.Live(), "evicted entry's timer is stopped")
}

func TestRegistry_PlaysCueOnAdd(t *testing.T) {
	cues := &cueRecorder{}
	reg := NewRegistry(WithCuePlayer(cues))

	reg.Add(Request{Kind: KindError, Message: "stock warning"})
	reg.Add(Request{Kind: KindSuccess, Message: "done"})

	assert.Equal(t, []Kind{KindError, KindSuccess}, cues.kinds)
}

func TestRegistry_Close(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock))
	rec := &recorder{}
	reg.Subscribe(rec.fn)
	reg.Add(Request{Message: "a", Duration: time.Second})

	reg.Close()
	reg.Close()

	assert.Equal(t, 0, clock.Live())
	assert.Equal(t, ID(0), reg.Add(Request{Message: "late"}))
	reg.Clear()
	assert.Equal(t, 1, rec.count())
}

func TestRegistry_RealClockExpiry(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()
	var removals atomic.Int32
	reg.Subscribe(func(list []Notification) {
		if len(list) == 0 {
			removals.Add(1)
		}
	})

	reg.Add(Request{Message: "short", Duration: 20 * time.Millisecond})

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), removals.Load())
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"low", PriorityLow, false},
		{"Normal", PriorityNormal, false},
		{"", PriorityNormal, false},
		{" high ", PriorityHigh, false},
		{"urgent", PriorityUrgent, false},
		{"critical", PriorityNormal, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Priority {
	t.Helper()
	p, err := ParsePriority(s)
	require.NoError(t, err)
	return p
}

func TestKindStrings(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, "collaboration", CategoryCollaboration.String())
}
