// Package answercache keeps the teacher's view of submitted answers: a local
// cache merged from the server, persisted between runs, and the actions the
// answer viewer takes on it.
package answercache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/schedule"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval is how often answers are fetched
const DefaultRefreshInterval = time.Second

// ViewerClient defines what the viewer needs from the API client
type ViewerClient interface {
	GetStudentAnswers(ctx context.Context) ([]models.Question, error)
	CreateProblem(ctx context.Context, req api.CreateProblemRequest) (*api.CreateProblemResponse, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

// Viewer refreshes the store from the server and applies teacher actions
type Viewer struct {
	client   ViewerClient
	store    *Store
	clock    clockwork.Clock
	interval time.Duration
}

// NewViewer creates a viewer. A zero interval uses DefaultRefreshInterval.
func NewViewer(client ViewerClient, store *Store, clock clockwork.Clock, interval time.Duration) *Viewer {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Viewer{
		client:   client,
		store:    store,
		clock:    clock,
		interval: interval,
	}
}

// Store returns the cache the viewer writes to
func (v *Viewer) Store() *Store {
	return v.store
}

// Refresh fetches every question and merges it into the cache. On a network
// error the cache is left as it was.
func (v *Viewer) Refresh(ctx context.Context) error {
	remote, err := v.client.GetStudentAnswers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch student answers")
		return fmt.Errorf("fetch student answers: %w", err)
	}
	return v.store.Apply(remote)
}

// Start refreshes immediately and then once per interval
func (v *Viewer) Start(ctx context.Context) *schedule.Task {
	refresh := func(ctx context.Context) {
		_ = v.Refresh(ctx)
	}
	return schedule.Every(ctx, v.clock, v.interval, refresh, schedule.Immediately())
}

// Ask posts a new question and caches it under the ID the server assigned,
// so it shows up before the next refresh.
func (v *Viewer) Ask(ctx context.Context, req api.CreateProblemRequest) (uuid.UUID, error) {
	resp, err := v.client.CreateProblem(ctx, req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create problem: %w", err)
	}

	q := models.Question{
		ID:        resp.QuestionID,
		Prompt:    req.Prompt,
		Answers:   []models.Answer{},
		CreatedAt: v.clock.Now().UTC(),
	}
	if req.Duration != nil && *req.Duration > 0 {
		d := *req.Duration
		q.Duration = &d
	}
	if err := v.store.Add(q); err != nil {
		return resp.QuestionID, err
	}

	log.Info().Str("question_id", resp.QuestionID.String()).Msg("question asked")
	return resp.QuestionID, nil
}

// Delete removes a question on the server and from the cache. The cached copy
// is removed even when the server call fails; the server error is returned.
func (v *Viewer) Delete(ctx context.Context, id uuid.UUID) error {
	serverErr := v.client.DeleteQuestion(ctx, id)
	if serverErr != nil {
		log.Warn().Err(serverErr).Str("question_id", id.String()).Msg("server delete failed - removing locally")
	}

	if _, err := v.store.Remove(id); err != nil {
		return err
	}
	if serverErr != nil {
		return fmt.Errorf("delete question: %w", serverErr)
	}
	return nil
}
