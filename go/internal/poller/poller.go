// Package poller keeps the teacher's view of the active question session in
// sync with the server and ends the session once it is over.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/schedule"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often the status is fetched
const DefaultInterval = time.Second

// StatusClient defines what the poller needs from the API client
type StatusClient interface {
	QuestionStatus(ctx context.Context) (*models.SessionStatus, error)
	EndQuestionSession(ctx context.Context) (bool, error)
}

// View is what the teacher dashboard shows about the session
type View struct {
	Active            bool
	QuestionID        *uuid.UUID
	TimeRemaining     *int
	ResponsesReceived int
	ExpectedStudents  int
	AllResponded      bool
	Duration          *int
	StudentsStarted   int
}

// ResponseRatio renders "received/expected", or just the count when the
// expected number is unknown.
func (v View) ResponseRatio() string {
	if v.ExpectedStudents > 0 {
		return fmt.Sprintf("%d/%d", v.ResponsesReceived, v.ExpectedStudents)
	}
	return fmt.Sprintf("%d", v.ResponsesReceived)
}

// Countdown renders the remaining time as m:ss, or "" for untimed sessions
func (v View) Countdown() string {
	if v.TimeRemaining == nil {
		return ""
	}
	s := *v.TimeRemaining
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// Poller fetches the session status on a schedule
type Poller struct {
	client   StatusClient
	clock    clockwork.Clock
	interval time.Duration

	pollMu sync.Mutex // serializes Poll

	mu       sync.RWMutex
	view     View
	ending   *uuid.UUID // question whose end call was issued
	onUpdate func(View)
}

// New creates a poller. A zero interval uses DefaultInterval.
func New(client StatusClient, clock clockwork.Clock, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		client:   client,
		clock:    clock,
		interval: interval,
	}
}

// OnUpdate registers fn to be called with the view after every successful poll
func (p *Poller) OnUpdate(fn func(View)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// View returns the current view
func (p *Poller) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// Start polls immediately and then once per interval until ctx is cancelled
// or the returned task is stopped.
func (p *Poller) Start(ctx context.Context) *schedule.Task {
	poll := func(ctx context.Context) {
		// Errors are logged by Poll; the next tick retries.
		_ = p.Poll(ctx)
	}
	return schedule.Every(ctx, p.clock, p.interval, poll, schedule.Immediately())
}

// Poll runs one status cycle. On error the view is left unchanged.
func (p *Poller) Poll(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	st, err := p.client.QuestionStatus(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch question status")
		return fmt.Errorf("fetch question status: %w", err)
	}

	p.mu.Lock()
	if !st.Active || st.QuestionID == nil {
		p.ending = nil
		p.view = View{}
		p.notifyLocked()
		return nil
	}

	id := *st.QuestionID
	if p.ending != nil {
		if *p.ending == id {
			// The end call was issued; the server has not caught up yet.
			p.mu.Unlock()
			log.Debug().Str("question_id", id.String()).Msg("ignoring stale active status")
			return nil
		}
		p.ending = nil
	}

	p.view = viewFrom(st)
	finished := st.AllResponded || (st.TimeRemaining != nil && *st.TimeRemaining <= 0)
	if !finished {
		p.notifyLocked()
		return nil
	}
	p.ending = &id
	p.mu.Unlock()

	log.Info().
		Str("question_id", id.String()).
		Bool("all_responded", st.AllResponded).
		Msg("session finished - ending")

	if _, err := p.client.EndQuestionSession(ctx); err != nil {
		log.Warn().Err(err).Str("question_id", id.String()).Msg("failed to end question session")
		p.mu.Lock()
		p.ending = nil
		p.notifyLocked()
		return fmt.Errorf("end question session: %w", err)
	}

	p.mu.Lock()
	p.view = View{}
	p.notifyLocked()
	return nil
}

// notifyLocked releases p.mu and calls the update callback with the view
func (p *Poller) notifyLocked() {
	fn, view := p.onUpdate, p.view
	p.mu.Unlock()
	if fn != nil {
		fn(view)
	}
}

func viewFrom(st *models.SessionStatus) View {
	return View{
		Active:            true,
		QuestionID:        st.QuestionID,
		TimeRemaining:     st.TimeRemaining,
		ResponsesReceived: st.ResponsesReceived,
		ExpectedStudents:  st.ExpectedStudents,
		AllResponded:      st.AllResponded,
		Duration:          st.Duration,
		StudentsStarted:   st.StudentsStarted,
	}
}
