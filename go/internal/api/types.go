package api

import (
	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
)

// Status values carried in the "status" field of responses
const (
	StatusReceived        = "received"
	StatusQueueEmpty      = "queue empty"
	StatusQueueHasElement = "queue has element"
	StatusOK              = "ok"
	StatusEnded           = "ended"
	StatusNoActiveSession = "no active session"
	StatusDeleted         = "deleted"
	StatusError           = "error"
)

// CreateProblemRequest is the body of PUT /api/createProblem
type CreateProblemRequest struct {
	Prompt           string `json:"prompt"`
	Duration         *int   `json:"duration,omitempty"`
	ExpectedStudents int    `json:"expected_students,omitempty"`
}

// CreateProblemResponse is returned once a problem is stored and opened
type CreateProblemResponse struct {
	Status     string    `json:"status"`
	QuestionID uuid.UUID `json:"question_id"`
}

// ProblemResponse is returned by peekProblem and getProblem
type ProblemResponse struct {
	Status     string     `json:"status"`
	QuestionID *uuid.UUID `json:"question_id,omitempty"`
	Prompt     string     `json:"prompt,omitempty"`
	Duration   *int       `json:"duration,omitempty"`
}

// HasProblem reports whether the response carries a problem
func (r ProblemResponse) HasProblem() bool {
	return r.Status == StatusQueueHasElement && r.QuestionID != nil
}

// StudentAnswerRequest is the body of POST /api/studentAnswers. Older
// clients wrap the submission in a "studentAnswers" object.
type StudentAnswerRequest struct {
	models.AnswerSubmission
	StudentAnswers *models.AnswerSubmission `json:"studentAnswers,omitempty"`
}

// Submission returns the submission, unwrapping the legacy form
func (r StudentAnswerRequest) Submission() models.AnswerSubmission {
	if r.StudentAnswers != nil && r.StudentEmail == "" {
		return *r.StudentAnswers
	}
	return r.AnswerSubmission
}

// StudentAnswersResponse is returned by GET /api/getStudentAnswers
type StudentAnswersResponse struct {
	Status    string            `json:"status"`
	Questions []models.Question `json:"questions"`
}

// StatusResponse is a bare status with an optional message
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SubmitCodeRequest is the body of PUT /api/submitCode. The editor sends the
// source either directly or wrapped in "codeSample".
type SubmitCodeRequest struct {
	Code       string `json:"code"`
	CodeSample *struct {
		Code string `json:"code"`
	} `json:"codeSample,omitempty"`
}

// Source returns the code to run, unwrapping the editor form
func (r SubmitCodeRequest) Source() string {
	if r.Code == "" && r.CodeSample != nil {
		return r.CodeSample.Code
	}
	return r.Code
}

// SubmitCodeResponse carries what the run printed
type SubmitCodeResponse struct {
	Status     string `json:"status"`
	Out        string `json:"out"`
	Err        string `json:"err"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}
