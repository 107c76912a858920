package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// QuestionsRepository defines what the app layer needs from the repository
type QuestionsRepository interface {
	CreateQuestion(ctx context.Context, prompt string, settings models.QuestionSettings) (*models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	AddAnswer(ctx context.Context, questionID uuid.UUID, answer models.Answer) (*models.Question, error)
}

// App handles question business logic
type App struct {
	repo           QuestionsRepository
	maxDurationSec int
}

// NewApp creates a new questions App. A maxDurationSec of zero disables the
// upper bound on session length.
func NewApp(repo QuestionsRepository, maxDurationSec int) *App {
	return &App{
		repo:           repo,
		maxDurationSec: maxDurationSec,
	}
}

// CreateQuestion validates and stores a new question
func (a *App) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*models.Question, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := a.validateCreateQuestionRequest(req); err != nil {
		return nil, err
	}

	// A zero duration means the same thing as no duration.
	settings := models.QuestionSettings{ExpectedStudents: req.ExpectedStudents}
	if req.DurationSec != nil && *req.DurationSec > 0 {
		d := *req.DurationSec
		settings.DurationSec = &d
	}

	question, err := a.repo.CreateQuestion(ctx, req.Prompt, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	log.Info().
		Str("question_id", question.ID.String()).
		Bool("timed", question.Timed()).
		Msg("question created")
	return question, nil
}

// GetQuestion retrieves a question by ID
func (a *App) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	question, err := a.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// ListQuestions returns every question with its answers, oldest first
func (a *App) ListQuestions(ctx context.Context) ([]models.Question, error) {
	list, err := a.repo.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return list, nil
}

// DeleteQuestion deletes a question and its answers
func (a *App) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteQuestion(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	log.Info().Str("question_id", id.String()).Msg("question deleted")
	return nil
}

// AddAnswer records a student's answer. A student may answer a question once.
func (a *App) AddAnswer(ctx context.Context, questionID uuid.UUID, answer models.Answer) (*models.Question, error) {
	answer.StudentID = strings.TrimSpace(answer.StudentID)
	if answer.StudentID == "" {
		return nil, fmt.Errorf("%w: student email is required", ErrInvalidAnswer)
	}

	question, err := a.repo.AddAnswer(ctx, questionID, answer)
	if err != nil {
		return nil, fmt.Errorf("failed to add answer: %w", err)
	}

	log.Info().
		Str("question_id", questionID.String()).
		Str("student_id", answer.StudentID).
		Int("answer_count", question.AnswerCount).
		Msg("answer recorded")
	return question, nil
}

// validateCreateQuestionRequest validates create question request
func (a *App) validateCreateQuestionRequest(req CreateQuestionRequest) error {
	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidQuestion)
	}
	if req.DurationSec != nil && *req.DurationSec < 0 {
		return fmt.Errorf("%w: duration cannot be negative", ErrInvalidQuestion)
	}
	if req.DurationSec != nil && a.maxDurationSec > 0 && *req.DurationSec > a.maxDurationSec {
		return fmt.Errorf("%w: duration exceeds %d seconds", ErrInvalidQuestion, a.maxDurationSec)
	}
	if req.ExpectedStudents < 0 {
		return fmt.Errorf("%w: expected students cannot be negative", ErrInvalidQuestion)
	}
	return nil
}
