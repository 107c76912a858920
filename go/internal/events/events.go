package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of session event
type EventType string

const (
	EventTypeQuestionCreated EventType = "QuestionCreated"
	EventTypeSessionStarted  EventType = "SessionStarted"
	EventTypeAnswerSubmitted EventType = "AnswerSubmitted"
	EventTypeAllResponded    EventType = "AllResponded"
	EventTypeSessionEnded    EventType = "SessionEnded"
	EventTypeQuestionDeleted EventType = "QuestionDeleted"
)

// Event is the envelope every session event travels in, on the bus and over
// WebSocket connections alike.
type Event struct {
	ID         uuid.UUID       `json:"eventId"`
	Type       EventType       `json:"eventType"`
	QuestionID uuid.UUID       `json:"questionId"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher delivers events to interested consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// New builds an event with a fresh ID and a JSON-encoded payload
func New(eventType EventType, questionID uuid.UUID, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		QuestionID: questionID,
		Timestamp:  at.UTC(),
		Payload:    data,
	}, nil
}
