package questions

// CreateQuestionRequest represents the data needed to post a new question
type CreateQuestionRequest struct {
	Prompt           string `json:"prompt"`
	DurationSec      *int   `json:"duration,omitempty"`
	ExpectedStudents int    `json:"expected_students,omitempty"`
}
