// Package events carries model lifecycle notifications out of the registry.
package events

import "time"

// Event represents a lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ModelID   string         `json:"model_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(Event) {}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
