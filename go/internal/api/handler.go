package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/questions"
	"github.com/mcdev12/classroom/go/internal/runner"
	"github.com/mcdev12/classroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// SessionManager defines what the HTTP layer needs from the session manager
type SessionManager interface {
	Open(ctx context.Context, req questions.CreateQuestionRequest) (*models.Question, error)
	Peek() (*models.Problem, bool)
	Accept(student string) (*models.Problem, bool)
	Submit(ctx context.Context, sub models.AnswerSubmission) error
	Status() models.SessionStatus
	End(ctx context.Context, reason string) (bool, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

// CodeRunner defines what the HTTP layer needs to execute student code
type CodeRunner interface {
	Run(ctx context.Context, code string) (*runner.Result, error)
}

// Handler serves the classroom REST API
type Handler struct {
	sessions SessionManager
	runner   CodeRunner
}

// NewHandler creates a new REST handler. submitCode answers 501 until a
// runner is attached with WithCodeRunner.
func NewHandler(sessions SessionManager) *Handler {
	return &Handler{sessions: sessions}
}

// WithCodeRunner enables PUT /api/submitCode
func (h *Handler) WithCodeRunner(r CodeRunner) *Handler {
	h.runner = r
	return h
}

// RegisterRoutes registers the API routes with an HTTP mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/createProblem", h.HandleCreateProblem)
	mux.HandleFunc("GET /api/peekProblem", h.HandlePeekProblem)
	mux.HandleFunc("GET /api/getProblem", h.HandleGetProblem)
	mux.HandleFunc("POST /api/studentAnswers", h.HandleStudentAnswers)
	mux.HandleFunc("GET /api/getStudentAnswers", h.HandleGetStudentAnswers)
	mux.HandleFunc("GET /api/questionStatus", h.HandleQuestionStatus)
	mux.HandleFunc("POST /api/endQuestionSession", h.HandleEndQuestionSession)
	mux.HandleFunc("DELETE /api/deleteQuestion/{id}", h.HandleDeleteQuestion)
	mux.HandleFunc("PUT /api/submitCode", h.HandleSubmitCode)
}

// HandleCreateProblem handles PUT /api/createProblem
func (h *Handler) HandleCreateProblem(w http.ResponseWriter, r *http.Request) {
	var req CreateProblemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	q, err := h.sessions.Open(r.Context(), questions.CreateQuestionRequest{
		Prompt:           req.Prompt,
		DurationSec:      req.Duration,
		ExpectedStudents: req.ExpectedStudents,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateProblemResponse{Status: StatusReceived, QuestionID: q.ID})
}

// HandlePeekProblem handles GET /api/peekProblem
func (h *Handler) HandlePeekProblem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.sessions.Peek()
	writeJSON(w, http.StatusOK, problemResponse(p, ok))
}

// HandleGetProblem handles GET /api/getProblem
func (h *Handler) HandleGetProblem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.sessions.Accept(r.URL.Query().Get("student"))
	writeJSON(w, http.StatusOK, problemResponse(p, ok))
}

// HandleStudentAnswers handles POST /api/studentAnswers
func (h *Handler) HandleStudentAnswers(w http.ResponseWriter, r *http.Request) {
	var req StudentAnswerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.sessions.Submit(r.Context(), req.Submission()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: StatusReceived})
}

// HandleGetStudentAnswers handles GET /api/getStudentAnswers
func (h *Handler) HandleGetStudentAnswers(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.ListQuestions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Question{}
	}
	writeJSON(w, http.StatusOK, StudentAnswersResponse{Status: StatusOK, Questions: list})
}

// HandleQuestionStatus handles GET /api/questionStatus
func (h *Handler) HandleQuestionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Status())
}

// HandleEndQuestionSession handles POST /api/endQuestionSession
func (h *Handler) HandleEndQuestionSession(w http.ResponseWriter, r *http.Request) {
	ended, err := h.sessions.End(r.Context(), session.ReasonManual)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := StatusEnded
	if !ended {
		status = StatusNoActiveSession
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}

// HandleDeleteQuestion handles DELETE /api/deleteQuestion/{id}
func (h *Handler) HandleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid question id", questions.ErrQuestionNotFound))
		return
	}

	if err := h.sessions.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  StatusDeleted,
		Message: fmt.Sprintf("question %s deleted", id),
	})
}

// HandleSubmitCode handles PUT /api/submitCode
func (h *Handler) HandleSubmitCode(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, r, ErrCodeRunDisabled)
		return
	}

	var req SubmitCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.runner.Run(r.Context(), req.Source())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitCodeResponse{
		Status:     StatusReceived,
		Out:        res.Stdout,
		Err:        res.Stderr,
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		Truncated:  res.Truncated,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func problemResponse(p *models.Problem, ok bool) ProblemResponse {
	if !ok {
		return ProblemResponse{Status: StatusQueueEmpty}
	}
	id := p.QuestionID
	return ProblemResponse{
		Status:     StatusQueueHasElement,
		QuestionID: &id,
		Prompt:     p.Prompt,
		Duration:   p.Duration,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
