package audio

import "github.com/bft-labs/livefeed/pkg/notify"

// Cue names a sound asset.
type Cue string

const (
	CueChime   Cue = "chime"
	CueSuccess Cue = "success"
	CueAlert   Cue = "alert"
	CueError   Cue = "error"
	CueTick    Cue = "tick"
)

// cues maps every notify.Kind to its sound.
var cues = map[notify.Kind]Cue{
	notify.KindInfo:     CueChime,
	notify.KindSuccess:  CueSuccess,
	notify.KindWarning:  CueAlert,
	notify.KindError:    CueError,
	notify.KindProgress: CueTick,
}

// CueFor returns the cue for kind, and false when the kind has none.
func CueFor(kind notify.Kind) (Cue, bool) {
	c, ok := cues[kind]
	return c, ok
}

// repeats returns how often a cue is played for a priority.
func repeats(p notify.Priority) int {
	if p == notify.PriorityUrgent {
		return 2
	}
	return 1
}
