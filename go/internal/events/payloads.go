package events

import "time"

// QuestionCreatedPayload is the payload for a QuestionCreated event
type QuestionCreatedPayload struct {
	Prompt      string    `json:"prompt"`
	DurationSec *int      `json:"duration_sec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	StartedAt        time.Time  `json:"started_at"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	ExpectedStudents int        `json:"expected_students"`
}

// AnswerSubmittedPayload is the payload for an AnswerSubmitted event
type AnswerSubmittedPayload struct {
	StudentID         string    `json:"student_id"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ResponsesReceived int       `json:"responses_received"`
	ExpectedStudents  int       `json:"expected_students"`
}

// AllRespondedPayload is the payload for an AllResponded event
type AllRespondedPayload struct {
	ResponsesReceived int `json:"responses_received"`
}

// SessionEndedPayload is the payload for a SessionEnded event
type SessionEndedPayload struct {
	EndedAt           time.Time `json:"ended_at"`
	Reason            string    `json:"reason"`
	ResponsesReceived int       `json:"responses_received"`
}

// QuestionDeletedPayload is the payload for a QuestionDeleted event
type QuestionDeletedPayload struct {
	DeletedAt time.Time `json:"deleted_at"`
}
