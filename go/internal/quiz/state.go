package quiz

import "github.com/google/uuid"

// State is where the student is in answering a question
type State int

const (
	Idle State = iota
	Pending
	Active
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// WarningAt is the remaining time, in seconds, that triggers the one-minute warning
const WarningAt = 60

// Snapshot is a copy of the flow's state for rendering
type Snapshot struct {
	State      State
	QuestionID *uuid.UUID
	Prompt     string
	Duration   *int
	// Remaining is the countdown in seconds; nil when the question is untimed.
	Remaining *int
	Code      string
	Warning   bool
}
