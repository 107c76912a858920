package questions

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/models"
)

// MemoryRepository keeps questions in process memory. It is the default
// storage when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	clock     clockwork.Clock
	questions map[uuid.UUID]*models.Question
	order     []uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	return &MemoryRepository{
		clock:     clock,
		questions: make(map[uuid.UUID]*models.Question),
	}
}

func (r *MemoryRepository) CreateQuestion(ctx context.Context, prompt string, settings models.QuestionSettings) (*models.Question, error) {
	q := &models.Question{
		ID:        uuid.New(),
		Prompt:    prompt,
		Duration:  settings.DurationSec,
		Answers:   []models.Answer{},
		CreatedAt: r.clock.Now().UTC(),
	}

	r.mu.Lock()
	r.questions[q.ID] = q
	r.order = append(r.order, q.ID)
	r.mu.Unlock()

	return copyQuestion(q), nil
}

func (r *MemoryRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (r *MemoryRepository) ListQuestions(ctx context.Context) ([]models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Question, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, *copyQuestion(r.questions[id]))
	}
	return list, nil
}

func (r *MemoryRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.questions[id]; !ok {
		return ErrQuestionNotFound
	}
	delete(r.questions, id)
	for i, qid := range r.order {
		if qid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) AddAnswer(ctx context.Context, questionID uuid.UUID, answer models.Answer) (*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[questionID]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	for _, existing := range q.Answers {
		if existing.StudentID == answer.StudentID {
			return nil, ErrDuplicateAnswer
		}
	}
	if answer.SubmittedAt.IsZero() {
		answer.SubmittedAt = r.clock.Now().UTC()
	}
	q.Answers = append(q.Answers, answer)
	q.AnswerCount = len(q.Answers)
	return copyQuestion(q), nil
}

func copyQuestion(q *models.Question) *models.Question {
	out := *q
	out.Answers = append([]models.Answer{}, q.Answers...)
	if q.Duration != nil {
		d := *q.Duration
		out.Duration = &d
	}
	return &out
}
