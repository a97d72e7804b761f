package notify

import (
	"fmt"
	"strings"
)

// Kind is the closed set of notification kinds. Presentation concerns
// (icon, style, sound) keep one table per concern keyed by Kind.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
	KindProgress
)

var kindNames = map[Kind]string{
	KindInfo:     "info",
	KindSuccess:  "success",
	KindWarning:  "warning",
	KindError:    "error",
	KindProgress: "progress",
}

// Kinds returns every defined Kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindInfo, KindSuccess, KindWarning, KindError, KindProgress}
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Priority orders notifications by urgency.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority parses a priority name as produced by Priority.String.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

// Category groups notifications by the domain area they originate from.
type Category int

const (
	CategoryProject Category = iota
	CategoryMaterial
	CategoryDrawing
	CategoryWorker
	CategorySystem
	CategoryCollaboration
)

// String returns the lowercase name of the category.
func (c Category) String() string {
	switch c {
	case CategoryProject:
		return "project"
	case CategoryMaterial:
		return "material"
	case CategoryDrawing:
		return "drawing"
	case CategoryWorker:
		return "worker"
	case CategorySystem:
		return "system"
	case CategoryCollaboration:
		return "collaboration"
	default:
		return "unknown"
	}
}
