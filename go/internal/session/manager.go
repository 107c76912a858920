package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/events"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/questions"
	"github.com/rs/zerolog/log"
)

// Reasons a session ends, carried on SessionEnded events
const (
	ReasonManual   = "manual"
	ReasonDeadline = "deadline"
	ReasonReplaced = "replaced"
	ReasonDeleted  = "deleted"
)

// QuestionsApp defines what the session manager needs from the questions app
type QuestionsApp interface {
	CreateQuestion(ctx context.Context, req questions.CreateQuestionRequest) (*models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	AddAnswer(ctx context.Context, questionID uuid.UUID, answer models.Answer) (*models.Question, error)
}

// Config holds session manager settings
type Config struct {
	// DefaultExpectedStudents applies when a question does not name its own.
	DefaultExpectedStudents int
	// EndGrace is how long past the deadline the server waits for the
	// teacher to end a timed session before ending it itself.
	EndGrace time.Duration
}

// DefaultConfig returns default session settings
func DefaultConfig() Config {
	return Config{
		DefaultExpectedStudents: 0,
		EndGrace:                5 * time.Second,
	}
}

// activeSession is the one question instance currently open to students
type activeSession struct {
	questionID uuid.UUID
	prompt     string
	duration   *int
	expected   int
	startedAt  time.Time
	deadline   *time.Time
	accepted   map[string]bool
	answered   map[string]bool // includes in-flight submissions
	received   int

	allRespondedSent bool
}

func (s *activeSession) problem() *models.Problem {
	return &models.Problem{
		QuestionID: s.questionID,
		Prompt:     s.prompt,
		Duration:   s.duration,
	}
}

// Manager owns the active question session
type Manager struct {
	questions QuestionsApp
	publisher events.Publisher
	clock     clockwork.Clock
	cfg       Config

	mu        sync.Mutex
	active    *activeSession
	timerStop chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates a new session manager
func NewManager(questionsApp QuestionsApp, publisher events.Publisher, clock clockwork.Clock, cfg Config) *Manager {
	return &Manager{
		questions: questionsApp,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
	}
}

// Open stores a new question and makes it the active session, ending any
// session that was open before.
func (m *Manager) Open(ctx context.Context, req questions.CreateQuestionRequest) (*models.Question, error) {
	q, err := m.questions.CreateQuestion(ctx, req)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	expected := req.ExpectedStudents
	if expected == 0 {
		expected = m.cfg.DefaultExpectedStudents
	}
	s := &activeSession{
		questionID: q.ID,
		prompt:     q.Prompt,
		duration:   q.Duration,
		expected:   expected,
		startedAt:  now,
		accepted:   make(map[string]bool),
		answered:   make(map[string]bool),
	}
	if q.Timed() {
		deadline := now.Add(time.Duration(*q.Duration) * time.Second)
		s.deadline = &deadline
	}

	m.mu.Lock()
	prev := m.active
	m.active = s
	if s.deadline != nil {
		m.scheduleEndLocked(q.ID, s.deadline.Add(m.cfg.EndGrace))
	} else {
		m.cancelTimerLocked()
	}
	var prevReceived int
	if prev != nil {
		prevReceived = prev.received
	}
	m.mu.Unlock()

	if prev != nil {
		m.publish(ctx, events.EventTypeSessionEnded, prev.questionID, events.SessionEndedPayload{
			EndedAt:           now,
			Reason:            ReasonReplaced,
			ResponsesReceived: prevReceived,
		})
	}
	m.publish(ctx, events.EventTypeQuestionCreated, q.ID, events.QuestionCreatedPayload{
		Prompt:      q.Prompt,
		DurationSec: q.Duration,
		CreatedAt:   q.CreatedAt,
	})
	m.publish(ctx, events.EventTypeSessionStarted, q.ID, events.SessionStartedPayload{
		StartedAt:        now,
		Deadline:         s.deadline,
		ExpectedStudents: expected,
	})

	log.Info().
		Str("question_id", q.ID.String()).
		Int("expected_students", expected).
		Bool("timed", s.deadline != nil).
		Msg("session opened")
	return q, nil
}

// Peek returns the active problem without recording anything
func (m *Manager) Peek() (*models.Problem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, false
	}
	return m.active.problem(), true
}

// Accept returns the active problem and records that the student started it.
// An empty student is allowed and simply not recorded.
func (m *Manager) Accept(student string) (*models.Problem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, false
	}
	if student = strings.TrimSpace(student); student != "" {
		m.active.accepted[student] = true
	}
	return m.active.problem(), true
}

// Submit records a student's answer for the active session. Each student may
// answer once; concurrent duplicates are rejected before reaching storage.
func (m *Manager) Submit(ctx context.Context, sub models.AnswerSubmission) error {
	email := strings.TrimSpace(sub.StudentEmail)
	if email == "" {
		return fmt.Errorf("%w: student email is required", questions.ErrInvalidAnswer)
	}

	m.mu.Lock()
	s := m.active
	if s == nil {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if sub.QuestionID != nil && *sub.QuestionID != s.questionID {
		m.mu.Unlock()
		return ErrQuestionMismatch
	}
	if s.answered[email] {
		m.mu.Unlock()
		return questions.ErrDuplicateAnswer
	}
	s.answered[email] = true
	m.mu.Unlock()

	now := m.clock.Now().UTC()
	_, err := m.questions.AddAnswer(ctx, s.questionID, models.Answer{
		StudentID:   email,
		Code:        sub.Code,
		SubmittedAt: now,
	})

	m.mu.Lock()
	if err != nil {
		delete(s.answered, email)
		m.mu.Unlock()
		return err
	}
	s.received++
	received, expected := s.received, s.expected
	allResponded := expected > 0 && received >= expected && !s.allRespondedSent
	if allResponded {
		s.allRespondedSent = true
	}
	m.mu.Unlock()

	m.publish(ctx, events.EventTypeAnswerSubmitted, s.questionID, events.AnswerSubmittedPayload{
		StudentID:         email,
		SubmittedAt:       now,
		ResponsesReceived: received,
		ExpectedStudents:  expected,
	})
	if allResponded {
		m.publish(ctx, events.EventTypeAllResponded, s.questionID, events.AllRespondedPayload{
			ResponsesReceived: received,
		})
	}
	return nil
}

// Status reports the active session as the teacher's poller sees it
func (m *Manager) Status() models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.active
	if s == nil {
		return models.SessionStatus{Active: false}
	}

	id := s.questionID
	st := models.SessionStatus{
		Active:            true,
		QuestionID:        &id,
		ResponsesReceived: s.received,
		ExpectedStudents:  s.expected,
		AllResponded:      s.expected > 0 && s.received >= s.expected,
		Duration:          s.duration,
		StudentsStarted:   len(s.accepted),
	}
	if s.deadline != nil {
		remaining := remainingSeconds(s.deadline.Sub(m.clock.Now()))
		st.TimeRemaining = &remaining
	}
	return st
}

// End closes the active session. It reports false when there was none.
func (m *Manager) End(ctx context.Context, reason string) (bool, error) {
	m.mu.Lock()
	s := m.active
	if s == nil {
		m.mu.Unlock()
		return false, nil
	}
	return m.endLocked(ctx, s, reason)
}

// endIfCurrent ends the session only if it is still the one for questionID
func (m *Manager) endIfCurrent(ctx context.Context, questionID uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	s := m.active
	if s == nil || s.questionID != questionID {
		m.mu.Unlock()
		return false, nil
	}
	return m.endLocked(ctx, s, reason)
}

// endLocked clears s and unlocks m.mu before publishing
func (m *Manager) endLocked(ctx context.Context, s *activeSession, reason string) (bool, error) {
	m.active = nil
	m.cancelTimerLocked()
	received := s.received
	m.mu.Unlock()

	m.publish(ctx, events.EventTypeSessionEnded, s.questionID, events.SessionEndedPayload{
		EndedAt:           m.clock.Now(),
		Reason:            reason,
		ResponsesReceived: received,
	})

	log.Info().
		Str("question_id", s.questionID.String()).
		Str("reason", reason).
		Int("responses_received", received).
		Msg("session ended")
	return true, nil
}

// ListQuestions returns every stored question with its answers
func (m *Manager) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return m.questions.ListQuestions(ctx)
}

// DeleteQuestion removes a question, ending its session if it is active
func (m *Manager) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	if err := m.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	if _, err := m.endIfCurrent(ctx, id, ReasonDeleted); err != nil {
		return err
	}
	m.publish(ctx, events.EventTypeQuestionDeleted, id, events.QuestionDeletedPayload{
		DeletedAt: m.clock.Now(),
	})
	return nil
}

// Close stops the pending end timer and waits for its goroutine
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelTimerLocked()
	m.mu.Unlock()
	m.wg.Wait()
}

// publish emits an event. Failures are logged and never fail the operation.
func (m *Manager) publish(ctx context.Context, eventType events.EventType, questionID uuid.UUID, payload any) {
	ev, err := events.New(eventType, questionID, m.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Str("question_id", questionID.String()).
			Msg("failed to publish event")
	}
}
