package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionSettings holds JSONB configuration for a question's session.
type QuestionSettings struct {
	DurationSec      *int `json:"duration_sec,omitempty"` // nil means untimed
	ExpectedStudents int  `json:"expected_students,omitempty"`
}

// Question represents a prompt posted by the teacher together with the answers
// collected for it.
type Question struct {
	ID          uuid.UUID `json:"question_id"`
	Prompt      string    `json:"prompt"`
	Duration    *int      `json:"duration"`
	Answers     []Answer  `json:"answers"`
	AnswerCount int       `json:"answer_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is one student's submitted code for a question.
type Answer struct {
	StudentID   string    `json:"student_id"`
	Code        string    `json:"code"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Timed reports whether the question carries a positive duration.
func (q Question) Timed() bool {
	return q.Duration != nil && *q.Duration > 0
}
