package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskRequestEvent announces that a shop asked for background work. The
// HTTP layer publishes it after the task is persisted; observers (audit
// logging, webhooks) read the task's API representation from Payload
// without importing the task packages.
type TaskRequestEvent struct {
	ID uuid.UUID `json:"id"`

	// Shop is the tenant the requested task belongs to.
	Shop string `json:"shop"`

	// Type is the requested task type (aiGeneration, translation, sync).
	Type string `json:"type"`

	// Payload is the task's API representation, serialized once at
	// creation so every observer sees the same snapshot.
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent builds an event for the given shop and task type,
// serializing payload as the observer-facing snapshot.
func NewTaskRequestEvent(shop, eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Shop:      shop,
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler receives published events. Handlers must tolerate being
// called from the publisher's goroutine.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes events to whatever handlers are registered,
// keeping publishers ignorant of who is listening.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
