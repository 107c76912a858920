package models

import "github.com/google/uuid"

// Problem is what a student sees when peeking at or accepting the active
// session's question.
type Problem struct {
	QuestionID uuid.UUID `json:"question_id"`
	Prompt     string    `json:"prompt"`
	Duration   *int      `json:"duration"`
}

// Timed reports whether the problem has a positive duration.
func (p Problem) Timed() bool {
	return p.Duration != nil && *p.Duration > 0
}

// SessionStatus is the server's view of the active session. TimeRemaining is
// nil for untimed sessions.
type SessionStatus struct {
	Active            bool       `json:"active"`
	QuestionID        *uuid.UUID `json:"question_id"`
	TimeRemaining     *int       `json:"time_remaining"`
	ResponsesReceived int        `json:"responses_received"`
	ExpectedStudents  int        `json:"expected_students"`
	AllResponded      bool       `json:"all_responded"`
	Duration          *int       `json:"duration"`
	StudentsStarted   int        `json:"students_started"`
}

// AnswerSubmission is a student's answer as sent to the server.
type AnswerSubmission struct {
	QuestionID   *uuid.UUID `json:"question_id,omitempty"`
	StudentEmail string     `json:"studentEmail"`
	Code         string     `json:"code"`
}
