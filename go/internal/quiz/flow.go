// Package quiz drives a student through a question: offer, optional start
// gate, countdown and a single submission.
package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/schedule"
	"github.com/rs/zerolog/log"
)

// QuizClient defines what the flow needs from the API client
type QuizClient interface {
	PeekProblem(ctx context.Context) (*api.ProblemResponse, error)
	GetProblem(ctx context.Context, student string) (*api.ProblemResponse, error)
	SubmitAnswer(ctx context.Context, sub models.AnswerSubmission) error
}

type question struct {
	id       uuid.UUID
	prompt   string
	duration *int
}

// Flow is one student's quiz state machine
type Flow struct {
	client  QuizClient
	clock   clockwork.Clock
	student string

	mu         sync.Mutex
	state      State
	current    *question
	remaining  int
	code       string
	warning    bool
	submitting bool
	countdown  *schedule.Task
	submitted  map[uuid.UUID]bool
	onChange   func(Snapshot)
}

// NewFlow creates a flow for the student identified by email
func NewFlow(client QuizClient, clock clockwork.Clock, student string) *Flow {
	return &Flow{
		client:    client,
		clock:     clock,
		student:   student,
		submitted: make(map[uuid.UUID]bool),
	}
}

// OnChange registers fn to be called with a snapshot after every transition
// and countdown tick
func (f *Flow) OnChange(fn func(Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// Snapshot returns the current state
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Refresh asks the server for the active question. A timed question moves the
// flow to Pending; an untimed one is accepted and becomes Active directly.
// Questions already answered are not offered again.
func (f *Flow) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Active || f.submitting {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	resp, err := f.client.PeekProblem(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to peek problem")
		return fmt.Errorf("peek problem: %w", err)
	}
	if !resp.HasProblem() {
		f.mu.Lock()
		if f.state == Pending {
			f.resetLocked()
		}
		f.notifyLocked()
		return nil
	}

	q := &question{id: *resp.QuestionID, prompt: resp.Prompt, duration: resp.Duration}
	timed := q.duration != nil && *q.duration > 0

	f.mu.Lock()
	if f.submitted[q.id] || f.state == Active {
		f.mu.Unlock()
		return nil
	}
	if f.state == Pending && f.current.id == q.id {
		f.mu.Unlock()
		return nil
	}
	if timed {
		f.resetLocked()
		f.state = Pending
		f.current = q
		log.Info().Str("question_id", q.id.String()).Int("duration", *q.duration).Msg("timed question pending")
		f.notifyLocked()
		return nil
	}
	f.mu.Unlock()

	return f.accept(ctx, q)
}

// Start accepts the pending question and starts its countdown
func (f *Flow) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return ErrNothingPending
	}
	q := f.current
	f.mu.Unlock()

	return f.accept(ctx, q)
}

// accept records the student as started on the server and activates q
func (f *Flow) accept(ctx context.Context, q *question) error {
	resp, err := f.client.GetProblem(ctx, f.student)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get problem")
		return fmt.Errorf("get problem: %w", err)
	}
	if !resp.HasProblem() || *resp.QuestionID != q.id {
		// The teacher ended or replaced the question in the meantime.
		f.mu.Lock()
		f.resetLocked()
		f.notifyLocked()
		return nil
	}

	f.mu.Lock()
	f.resetLocked()
	f.state = Active
	f.current = q
	if q.duration != nil && *q.duration > 0 {
		f.remaining = *q.duration
		f.countdown = schedule.Every(ctx, f.clock, time.Second, f.Tick)
	}
	log.Info().Str("question_id", q.id.String()).Msg("question started")
	f.notifyLocked()
	return nil
}

// Cancel declines the pending question. It is offered again on the next Refresh.
func (f *Flow) Cancel() {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.resetLocked()
	f.notifyLocked()
}

// SetCode stages the answer that Submit or the timer will send
func (f *Flow) SetCode(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = code
}

// Submit sends the staged answer. Once it succeeds the flow is Submitted and
// neither another Submit nor the timer sends the answer again. A failed
// submission can be retried while time remains.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != Active {
		f.mu.Unlock()
		return ErrNotActive
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.submitting = true
	q, code := f.current, f.code
	f.mu.Unlock()

	err := f.send(ctx, q, code)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		// Time ran out while the answer was in flight.
		if f.countdown != nil && f.remaining <= 0 {
			f.resetLocked()
		}
		f.notifyLocked()
		return err
	}
	f.submitted[q.id] = true
	f.stopCountdownLocked()
	f.state = Submitted
	log.Info().Str("question_id", q.id.String()).Msg("answer submitted")
	f.notifyLocked()
	return nil
}

// Tick advances the countdown by one second. When it reaches zero the staged
// answer is submitted automatically, once, and the flow returns to Idle.
func (f *Flow) Tick(ctx context.Context) {
	f.mu.Lock()
	if f.state != Active || f.countdown == nil || f.remaining <= 0 {
		f.mu.Unlock()
		return
	}
	f.remaining--
	if f.remaining == WarningAt {
		f.warning = true
		log.Info().Str("question_id", f.current.id.String()).Msg("one minute remaining")
	}
	if f.remaining > 0 {
		f.notifyLocked()
		return
	}

	// A manual submission in flight owns the answer.
	if f.submitting {
		f.notifyLocked()
		return
	}
	f.submitting = true
	q, code := f.current, f.code
	// ctx belongs to the countdown task, which is cancelled below.
	sendCtx := context.WithoutCancel(ctx)
	f.stopCountdownLocked()
	f.mu.Unlock()

	log.Info().Str("question_id", q.id.String()).Msg("time is up - submitting answer")
	err := f.send(sendCtx, q, code)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.submitted[q.id] = true
	}
	f.resetLocked()
	f.notifyLocked()
}

// Close stops the countdown
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCountdownLocked()
}

func (f *Flow) send(ctx context.Context, q *question, code string) error {
	id := q.id
	err := f.client.SubmitAnswer(ctx, models.AnswerSubmission{
		QuestionID:   &id,
		StudentEmail: f.student,
		Code:         code,
	})
	if err != nil {
		log.Error().Err(err).Str("question_id", id.String()).Msg("failed to submit answer")
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// resetLocked returns the flow to Idle. Callers must hold f.mu.
func (f *Flow) resetLocked() {
	f.stopCountdownLocked()
	f.state = Idle
	f.current = nil
	f.remaining = 0
	f.code = ""
	f.warning = false
}

func (f *Flow) stopCountdownLocked() {
	if f.countdown != nil {
		f.countdown.Stop()
		f.countdown = nil
	}
}

func (f *Flow) snapshotLocked() Snapshot {
	s := Snapshot{State: f.state, Code: f.code, Warning: f.warning}
	if f.current != nil {
		id := f.current.id
		s.QuestionID = &id
		s.Prompt = f.current.prompt
		s.Duration = f.current.duration
		if f.current.duration != nil && *f.current.duration > 0 && f.state == Active {
			r := f.remaining
			s.Remaining = &r
		}
	}
	return s
}

// notifyLocked releases f.mu and calls the change callback
func (f *Flow) notifyLocked() {
	fn, snap := f.onChange, f.snapshotLocked()
	f.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
