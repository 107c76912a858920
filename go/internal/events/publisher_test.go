package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingPublisher struct {
	got []Event
	err error
}

func (r *recordingPublisher) Publish(ctx context.Context, event Event) error {
	r.got = append(r.got, event)
	return r.err
}

func TestNew_EncodesPayload(t *testing.T) {
	qid := uuid.New()
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))

	ev, err := New(EventTypeAllResponded, qid, at, AllRespondedPayload{ResponsesReceived: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ev.ID == uuid.Nil {
		t.Error("event id must be set")
	}
	if ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp must be UTC, got %v", ev.Timestamp.Location())
	}

	var payload AllRespondedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ResponsesReceived != 3 {
		t.Errorf("responses_received = %d, want 3", payload.ResponsesReceived)
	}
}

func TestMultiPublisher_TriesAll(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("bus down")}
	ok := &recordingPublisher{}
	multi := NewMultiPublisher(failing, ok, NewLogPublisher())

	ev, _ := New(EventTypeSessionEnded, uuid.New(), time.Now(), SessionEndedPayload{Reason: "manual"})
	err := multi.Publish(context.Background(), ev)

	if err == nil || err.Error() != "bus down" {
		t.Errorf("expected joined bus error, got %v", err)
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Errorf("every publisher must see the event: failing=%d ok=%d", len(failing.got), len(ok.got))
	}
}
