package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type envelope struct {
	Event   string          `json:"event"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

// ParseMessage decodes one wire frame into an Event.
//
// Two frame shapes are accepted:
//
//	{"event": "project:created", "data": {...}}   ("type" and "payload" also work)
//	["project:created", {...}]
func ParseMessage(data []byte, receivedAt time.Time) (Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Event{}, fmt.Errorf("%w: empty frame", ErrMalformedMessage)
	}

	var (
		name    string
		payload json.RawMessage
	)
	switch data[0] {
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		name, payload = env.Event, env.Data
		if name == "" {
			name = env.Type
		}
		if payload == nil {
			payload = env.Payload
		}
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if len(parts) == 0 {
			return Event{}, fmt.Errorf("%w: empty array frame", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return Event{}, fmt.Errorf("%w: event name is not a string", ErrMalformedMessage)
		}
		if len(parts) > 1 {
			payload = parts[1]
		}
	default:
		return Event{}, fmt.Errorf("%w: unsupported frame", ErrMalformedMessage)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedMessage)
	}

	return Event{Name: name, Payload: payload, ReceivedAt: receivedAt}, nil
}
