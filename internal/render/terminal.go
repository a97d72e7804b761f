// Package render draws registry snapshots on a terminal.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/bft-labs/livefeed/pkg/notify"
)

var icons = map[notify.Kind]string{
	notify.KindInfo:     "ℹ",
	notify.KindSuccess:  "✔",
	notify.KindWarning:  "⚠",
	notify.KindError:    "✖",
	notify.KindProgress: "…",
}

var styles = map[notify.Kind]*color.Color{
	notify.KindInfo:     color.New(color.FgCyan),
	notify.KindSuccess:  color.New(color.FgGreen),
	notify.KindWarning:  color.New(color.FgYellow),
	notify.KindError:    color.New(color.FgRed, color.Bold),
	notify.KindProgress: color.New(color.FgBlue),
}

var dim = color.New(color.Faint)

// Option configures a Terminal.
type Option func(*Terminal)

// WithoutColor disables ANSI styling. Without it fatih/color decides from
// the terminal and NO_COLOR.
func WithoutColor() Option {
	return func(t *Terminal) { t.plain = true }
}

// Terminal is a registry subscriber that prints notifications as they
// appear and leave.
type Terminal struct {
	w     io.Writer
	plain bool

	mu   sync.Mutex
	seen map[notify.ID]notify.Notification
}

// NewTerminal creates a Terminal writing to w.
func NewTerminal(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		w:    w,
		seen: make(map[notify.ID]notify.Notification),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render diffs list against the previous snapshot. New entries are printed
// in full, removed ones as a dimmed dismissal line.
func (t *Terminal) Render(list []notify.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := make(map[notify.ID]notify.Notification, len(list))
	for _, n := range list {
		if !n.Visible {
			continue
		}
		current[n.ID] = n
		if _, ok := t.seen[n.ID]; !ok {
			t.printAdded(n)
		}
	}
	for id, n := range t.seen {
		if _, ok := current[id]; !ok {
			t.printRemoved(n)
		}
	}
	t.seen = current
}

func (t *Terminal) printAdded(n notify.Notification) {
	icon := Icon(n.Kind)
	head := fmt.Sprintf("%s %s", icon, n.Title)
	if n.Priority >= notify.PriorityHigh {
		head += fmt.Sprintf(" [%s]", n.Priority)
	}
	if t.plain {
		fmt.Fprintf(t.w, "%s: %s\n", head, n.Message)
		return
	}
	style := styles[n.Kind]
	if style == nil {
		style = dim
	}
	fmt.Fprintf(t.w, "%s: %s\n", style.Sprint(head), n.Message)
}

func (t *Terminal) printRemoved(n notify.Notification) {
	line := fmt.Sprintf("  dismissed %s (%s)", n.Title, n.ID)
	if t.plain {
		fmt.Fprintln(t.w, line)
		return
	}
	fmt.Fprintln(t.w, dim.Sprint(line))
}

// Icon returns the glyph for kind.
func Icon(kind notify.Kind) string {
	if s, ok := icons[kind]; ok {
		return s
	}
	return "•"
}
