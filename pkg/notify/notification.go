package notify

import (
	"maps"
	"strconv"
	"time"
)

// ID identifies a notification for the lifetime of its Registry.
// IDs are assigned in increasing order and never reused.
type ID uint64

// String renders the id as "n-<seq>".
func (id ID) String() string {
	return "n-" + strconv.FormatUint(uint64(id), 10)
}

// Request describes a notification to be added to the Registry.
type Request struct {
	Kind     Kind
	Title    string
	Message  string
	Priority Priority
	Category Category

	// Duration is the time until automatic removal. Zero means the
	// notification stays until removed explicitly.
	Duration time.Duration

	// Persistent notifications never expire, whatever their Duration.
	Persistent bool

	RelatedEntityID string
	Metadata        map[string]any
}

// Notification is a Request admitted by the Registry.
// Values handed out by the Registry are copies; mutate through Registry.Update.
type Notification struct {
	Request

	ID        ID
	CreatedAt time.Time

	// ExpiresAt is nil when the notification has no expiry timer.
	ExpiresAt *time.Time

	Visible bool

	// Progress is a completion percentage in [0, 100] for KindProgress entries.
	Progress int
}

// Expires reports whether the notification has an expiry timer.
func (n Notification) Expires() bool {
	return n.ExpiresAt != nil
}

// Patch holds partial changes for Registry.Update. Nil fields are left as is;
// Metadata entries are merged into the existing metadata.
type Patch struct {
	Title    *string
	Message  *string
	Kind     *Kind
	Priority *Priority
	Visible  *bool
	Progress *int
	Metadata map[string]any
}

func (p Patch) apply(n Notification) Notification {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Message != nil {
		n.Message = *p.Message
	}
	if p.Kind != nil {
		n.Kind = *p.Kind
	}
	if p.Priority != nil {
		n.Priority = *p.Priority
	}
	if p.Visible != nil {
		n.Visible = *p.Visible
	}
	if p.Progress != nil {
		n.Progress = min(max(*p.Progress, 0), 100)
	}
	if len(p.Metadata) > 0 {
		merged := make(map[string]any, len(n.Metadata)+len(p.Metadata))
		maps.Copy(merged, n.Metadata)
		maps.Copy(merged, p.Metadata)
		n.Metadata = merged
	}
	return n
}
