package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/models"
)

type fakeClient struct {
	mu          sync.Mutex
	problem     *api.ProblemResponse
	accepted    []string
	submissions []models.AnswerSubmission
	submitErr   error
	// block, when set, holds SubmitAnswer until it is closed
	block chan struct{}
}

func (c *fakeClient) setProblem(id uuid.UUID, duration *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.problem = &api.ProblemResponse{Status: api.StatusQueueHasElement, QuestionID: &id, Prompt: "reverse a string", Duration: duration}
}

func (c *fakeClient) PeekProblem(ctx context.Context) (*api.ProblemResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.problem == nil {
		return &api.ProblemResponse{Status: api.StatusQueueEmpty}, nil
	}
	p := *c.problem
	return &p, nil
}

func (c *fakeClient) GetProblem(ctx context.Context, student string) (*api.ProblemResponse, error) {
	c.mu.Lock()
	c.accepted = append(c.accepted, student)
	c.mu.Unlock()
	return c.PeekProblem(ctx)
}

func (c *fakeClient) SubmitAnswer(ctx context.Context, sub models.AnswerSubmission) error {
	c.mu.Lock()
	c.submissions = append(c.submissions, sub)
	block, err := c.block, c.submitErr
	c.mu.Unlock()
	if block != nil {
		<-block
	}
	// A real request fails the same way once its context is done.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (c *fakeClient) submitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.submissions)
}

func intPtr(v int) *int { return &v }

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// tick advances the fake clock by one second and waits for the countdown
// to reach want.
func tick(t *testing.T, ctx context.Context, clock *clockwork.FakeClock, f *Flow, want int) {
	t.Helper()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("BlockUntilContext: %v", err)
	}
	clock.Advance(time.Second)
	waitUntil(t, func() bool {
		s := f.Snapshot()
		return s.Remaining == nil || *s.Remaining == want
	})
}

func TestFlow_TimedQuestionWorkedExample(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	client := &fakeClient{}
	id := uuid.New()
	client.setProblem(id, intPtr(120))

	f := NewFlow(client, clock, "a@school.edu")
	defer f.Close()

	if err := f.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s := f.Snapshot()
	if s.State != Pending || *s.QuestionID != id || *s.Duration != 120 {
		t.Fatalf("after Refresh: %+v", s)
	}
	if len(client.accepted) != 0 {
		t.Fatal("a pending question must not be accepted yet")
	}

	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s = f.Snapshot()
	if s.State != Active || *s.Remaining != 120 {
		t.Fatalf("after Start: %+v", s)
	}
	f.SetCode("print('olleh')")

	for want := 119; want >= 60; want-- {
		tick(t, ctx, clock, f, want)
	}
	if !f.Snapshot().Warning {
		t.Error("one-minute warning not raised at 60s")
	}

	for want := 59; want >= 1; want-- {
		tick(t, ctx, clock, f, want)
	}
	clock.Advance(time.Second)
	waitUntil(t, func() bool { return f.Snapshot().State == Idle })

	if n := client.submitCount(); n != 1 {
		t.Fatalf("auto-submit sent %d answers, want 1", n)
	}
	sub := client.submissions[0]
	if sub.Code != "print('olleh')" || *sub.QuestionID != id || sub.StudentEmail != "a@school.edu" {
		t.Errorf("submission = %+v", sub)
	}

	// The answered question stays on the server but is not offered again.
	if err := f.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s := f.Snapshot(); s.State != Idle {
		t.Errorf("answered question re-offered: %+v", s)
	}
}

func TestFlow_UntimedGoesStraightToActive(t *testing.T) {
	client := &fakeClient{}
	client.setProblem(uuid.New(), nil)
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s := f.Snapshot()
	if s.State != Active || s.Remaining != nil {
		t.Fatalf("snapshot = %+v", s)
	}
	if len(client.accepted) != 1 {
		t.Errorf("getProblem called %d times, want 1", len(client.accepted))
	}
}

func TestFlow_ZeroDurationIsUntimed(t *testing.T) {
	client := &fakeClient{}
	client.setProblem(uuid.New(), intPtr(0))
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(context.Background())
	if s := f.Snapshot(); s.State != Active || s.Remaining != nil {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestFlow_ManualSubmitThenDoubleClick(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	client.setProblem(uuid.New(), nil)
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	f.SetCode("x")
	if err := f.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.Submit(ctx); !errors.Is(err, ErrNotActive) {
		t.Errorf("second Submit = %v, want ErrNotActive", err)
	}
	if f.Snapshot().State != Submitted {
		t.Errorf("state = %v, want submitted", f.Snapshot().State)
	}
	if n := client.submitCount(); n != 1 {
		t.Errorf("sent %d answers, want 1", n)
	}
}

func TestFlow_SingleSubmissionUnderDoubleSubmitAndExpiry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	client := &fakeClient{block: make(chan struct{})}
	client.setProblem(uuid.New(), intPtr(2))
	f := NewFlow(client, clock, "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first := make(chan error, 1)
	go func() { first <- f.Submit(ctx) }()
	waitUntil(t, func() bool { return client.submitCount() == 1 })

	if err := f.Submit(ctx); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("double click = %v, want ErrSubmitInFlight", err)
	}

	// The timer expires while the first submission is still in flight.
	tick(t, ctx, clock, f, 1)
	clock.Advance(time.Second)
	waitUntil(t, func() bool { s := f.Snapshot(); return s.Remaining != nil && *s.Remaining == 0 })

	close(client.block)
	if err := <-first; err != nil {
		t.Fatalf("Submit: %v", err)
	}

	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if n := client.submitCount(); n != 1 {
		t.Errorf("sent %d answers, want exactly 1", n)
	}
	if s := f.Snapshot(); s.State != Submitted {
		t.Errorf("state = %v, want submitted", s.State)
	}
}

func TestFlow_FailedManualSubmitCanRetry(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{submitErr: errors.New("server unavailable")}
	client.setProblem(uuid.New(), nil)
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	if err := f.Submit(ctx); err == nil {
		t.Fatal("Submit should fail")
	}
	if s := f.Snapshot(); s.State != Active {
		t.Fatalf("state after failure = %v, want active", s.State)
	}

	client.mu.Lock()
	client.submitErr = nil
	client.mu.Unlock()
	if err := f.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := client.submitCount(); n != 2 {
		t.Errorf("sent %d answers, want 2", n)
	}
}

func TestFlow_FailedAutoSubmitStillResets(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	client := &fakeClient{submitErr: errors.New("server unavailable")}
	client.setProblem(uuid.New(), intPtr(1))
	f := NewFlow(client, clock, "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	f.Start(ctx)
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("BlockUntilContext: %v", err)
	}
	clock.Advance(time.Second)
	waitUntil(t, func() bool { return f.Snapshot().State == Idle })

	if n := client.submitCount(); n != 1 {
		t.Errorf("sent %d answers, want 1", n)
	}
}

func TestFlow_CancelAndReoffer(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	client.setProblem(uuid.New(), intPtr(30))
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	f.Cancel()
	if s := f.Snapshot(); s.State != Idle {
		t.Fatalf("state after Cancel = %v", s.State)
	}
	if err := f.Start(ctx); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Start after Cancel = %v", err)
	}

	f.Refresh(ctx)
	if s := f.Snapshot(); s.State != Pending {
		t.Errorf("declined question must be offered again, state = %v", s.State)
	}
}

func TestFlow_PendingClearedWhenQueueEmpties(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	client.setProblem(uuid.New(), intPtr(30))
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	client.mu.Lock()
	client.problem = nil
	client.mu.Unlock()

	f.Refresh(ctx)
	if s := f.Snapshot(); s.State != Idle {
		t.Errorf("state = %v, want idle", s.State)
	}
	if err := f.Submit(ctx); !errors.Is(err, ErrNotActive) {
		t.Errorf("Submit while idle = %v", err)
	}
}

func TestFlow_NewQuestionAfterSubmit(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	client.setProblem(uuid.New(), nil)
	f := NewFlow(client, clockwork.NewFakeClock(), "a@school.edu")
	defer f.Close()

	f.Refresh(ctx)
	f.Submit(ctx)

	next := uuid.New()
	client.setProblem(next, intPtr(45))
	f.Refresh(ctx)
	s := f.Snapshot()
	if s.State != Pending || *s.QuestionID != next || s.Code != "" {
		t.Errorf("snapshot = %+v", s)
	}
}
