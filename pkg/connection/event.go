package connection

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnyEvent is the listener name that receives every event.
const AnyEvent = "*"

// Event is a named domain event received from the server.
type Event struct {
	Name       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %q: empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("event %q: %w", e.Name, err)
	}
	return nil
}

// Fields returns the payload as a JSON object.
// It fails when the payload is missing or is not an object.
func (e Event) Fields() (map[string]any, error) {
	var fields map[string]any
	if err := e.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("event %q: payload is not an object", e.Name)
	}
	return fields, nil
}

// Handler receives dispatched events. It runs on the dispatch goroutine and
// must not block.
type Handler func(Event)
