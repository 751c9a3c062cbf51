package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// EventMessage is the wire form of an analytics event.
type EventMessage struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	UserID      string            `json:"user_id,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEventMessage wraps e with a fresh message id.
func NewEventMessage(e core.Event) *EventMessage {
	return &EventMessage{
		ID:          uuid.NewString(),
		Name:        e.Name,
		UserID:      e.UserID,
		Properties:  e.Properties,
		OccurredAt:  e.OccurredAt,
		PublishedAt: time.Now().UTC(),
	}
}

// Event converts the message back into a core.Event.
func (m *EventMessage) Event() core.Event {
	return core.Event{
		Name:       m.Name,
		UserID:     m.UserID,
		Properties: m.Properties,
		OccurredAt: m.OccurredAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a message and checks it names an event.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Name == "" {
		return nil, fmt.Errorf("event message without name")
	}
	return &msg, nil
}
