package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
)

// Player is a playback backend.
type Player interface {
	Play(ctx context.Context, cue Cue) error
}

// NoopPlayer plays nothing.
type NoopPlayer struct{}

// Play does nothing.
func (NoopPlayer) Play(context.Context, Cue) error { return nil }

// BellPlayer rings the terminal bell on a writer, typically os.Stdout.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellPlayer creates a BellPlayer writing to w.
func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

// Play writes a BEL character.
func (b *BellPlayer) Play(ctx context.Context, cue Cue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write([]byte{'\a'})
	return err
}

// CommandPlayer runs an external program with the cue's sound file,
// for example "paplay /usr/share/livefeed/sounds/alert.wav".
type CommandPlayer struct {
	// Command is the player binary, e.g. "paplay" or "afplay".
	Command string

	// Dir holds one file per cue named "<cue><Ext>".
	Dir string

	// Ext defaults to ".wav".
	Ext string
}

// Play runs the player and waits for it to exit or ctx to end.
func (c CommandPlayer) Play(ctx context.Context, cue Cue) error {
	if c.Command == "" {
		return fmt.Errorf("audio: no player command configured")
	}
	ext := c.Ext
	if ext == "" {
		ext = ".wav"
	}
	file := filepath.Join(c.Dir, string(cue)+ext)
	if err := exec.CommandContext(ctx, c.Command, file).Run(); err != nil {
		return fmt.Errorf("audio: %s %s: %w", c.Command, file, err)
	}
	return nil
}
