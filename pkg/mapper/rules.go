package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bft-labs/livefeed/pkg/notify"
)

// Rule describes how one event becomes a notification.
type Rule struct {
	Event    string
	Category notify.Category
	Kind     notify.Kind
	Priority notify.Priority
	Title    string

	// Message is rendered with {field} placeholders replaced by payload values.
	Message string

	// Duration overrides the per-kind default from Config when positive.
	Duration   time.Duration
	Persistent bool

	// Required lists payload fields that must be present and non-empty.
	Required []string

	// EntityField names the payload field holding the related entity id.
	EntityField string

	// Clears names an event whose persistent notice for the same entity is
	// removed when this rule fires.
	Clears string
}

// Catalog returns the built-in rules, one per supported event.
func Catalog() []Rule {
	return []Rule{
		// Projects.
		{Event: "project:created", Category: notify.CategoryProject, Kind: notify.KindSuccess, Priority: notify.PriorityNormal,
			Title: "Project created", Message: "Project {name} was created", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "project:updated", Category: notify.CategoryProject, Kind: notify.KindInfo, Priority: notify.PriorityLow,
			Title: "Project updated", Message: "Project {name} was updated", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "project:deleted", Category: notify.CategoryProject, Kind: notify.KindWarning, Priority: notify.PriorityNormal,
			Title: "Project deleted", Message: "Project {name} was deleted", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "project:status-changed", Category: notify.CategoryProject, Kind: notify.KindInfo, Priority: notify.PriorityNormal,
			Title: "Project status", Message: "Project {name} is now {status}", Required: []string{"id", "name", "status"}, EntityField: "id"},

		// Materials.
		{Event: "material:allocated", Category: notify.CategoryMaterial, Kind: notify.KindInfo, Priority: notify.PriorityNormal,
			Title: "Material allocated", Message: "{name} was allocated", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "material:started", Category: notify.CategoryMaterial, Kind: notify.KindProgress, Priority: notify.PriorityLow,
			Title: "Processing started", Message: "Processing started for {name}", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "material:completed", Category: notify.CategoryMaterial, Kind: notify.KindSuccess, Priority: notify.PriorityNormal,
			Title: "Material completed", Message: "{name} is completed", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "material:recycled", Category: notify.CategoryMaterial, Kind: notify.KindInfo, Priority: notify.PriorityLow,
			Title: "Material recycled", Message: "{name} was recycled", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "material:stock-added", Category: notify.CategoryMaterial, Kind: notify.KindSuccess, Priority: notify.PriorityLow,
			Title: "Stock added", Message: "Added {quantity} of {name} to stock", Required: []string{"id", "name", "quantity"}, EntityField: "id"},
		{Event: "material:stock-warning", Category: notify.CategoryMaterial, Kind: notify.KindWarning, Priority: notify.PriorityHigh,
			Title: "Low stock", Message: "{name} is running low ({quantity} left)", Required: []string{"id", "name", "quantity"}, EntityField: "id",
			Persistent: true},

		// Drawings.
		{Event: "drawing:uploaded", Category: notify.CategoryDrawing, Kind: notify.KindInfo, Priority: notify.PriorityNormal,
			Title: "Drawing uploaded", Message: "Drawing {name} was uploaded", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "drawing:parsed", Category: notify.CategoryDrawing, Kind: notify.KindSuccess, Priority: notify.PriorityNormal,
			Title: "Drawing parsed", Message: "Drawing {name} was parsed", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "drawing:version-updated", Category: notify.CategoryDrawing, Kind: notify.KindInfo, Priority: notify.PriorityNormal,
			Title: "New drawing version", Message: "Drawing {name} is now at version {version}", Required: []string{"id", "name", "version"}, EntityField: "id"},
		{Event: "drawing:linked", Category: notify.CategoryDrawing, Kind: notify.KindInfo, Priority: notify.PriorityLow,
			Title: "Drawing linked", Message: "Drawing {name} was linked", Required: []string{"id", "name"}, EntityField: "id"},

		// Workers.
		{Event: "worker:added", Category: notify.CategoryWorker, Kind: notify.KindSuccess, Priority: notify.PriorityLow,
			Title: "Worker added", Message: "{name} joined the team", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "worker:updated", Category: notify.CategoryWorker, Kind: notify.KindInfo, Priority: notify.PriorityLow,
			Title: "Worker updated", Message: "{name} was updated", Required: []string{"id", "name"}, EntityField: "id"},
		{Event: "worker:overloaded", Category: notify.CategoryWorker, Kind: notify.KindWarning, Priority: notify.PriorityHigh,
			Title: "Worker overloaded", Message: "{name} is overloaded", Required: []string{"id", "name"}, EntityField: "id"},

		// Sync.
		{Event: "sync:completed", Category: notify.CategorySystem, Kind: notify.KindSuccess, Priority: notify.PriorityLow,
			Title: "Sync completed", Message: "Synchronization completed"},
		{Event: "sync:error", Category: notify.CategorySystem, Kind: notify.KindError, Priority: notify.PriorityHigh,
			Title: "Sync failed", Message: "Synchronization failed: {message}", Required: []string{"message"}},
		{Event: "sync:connection-lost", Category: notify.CategorySystem, Kind: notify.KindWarning, Priority: notify.PriorityHigh,
			Title: "Connection lost", Message: "The server reported a lost connection", Persistent: true},
		{Event: "sync:connection-restored", Category: notify.CategorySystem, Kind: notify.KindSuccess, Priority: notify.PriorityNormal,
			Title: "Connection restored", Message: "The server connection was restored", Clears: "sync:connection-lost"},
	}
}

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// render replaces {field} placeholders with payload values.
func render(tmpl string, fields map[string]any) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		return stringValue(fields[m[1:len(m)-1]])
	})
}

// stringValue formats a decoded JSON value for display.
func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// missing returns the first required field that is absent or empty.
func (r Rule) missing(fields map[string]any) (string, bool) {
	for _, name := range r.Required {
		if stringValue(fields[name]) == "" {
			return name, true
		}
	}
	return "", false
}
