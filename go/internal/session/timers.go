package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// scheduleEndLocked arms a one-shot timer that ends the session for
// questionID at the given time. Any previous timer is cancelled first.
// Callers must hold m.mu.
func (m *Manager) scheduleEndLocked(questionID uuid.UUID, at time.Time) {
	m.cancelTimerLocked()

	wait := at.Sub(m.clock.Now())
	if wait < 0 {
		wait = 0
	}
	timer := m.clock.NewTimer(wait)
	stop := make(chan struct{})
	m.timerStop = stop

	m.wg.Add(1)
	go func(id uuid.UUID, t clockwork.Timer) {
		defer m.wg.Done()
		select {
		case <-t.Chan():
			// A replaced or already ended session is ignored by endIfCurrent.
			ended, err := m.endIfCurrent(context.Background(), id, ReasonDeadline)
			if err != nil {
				log.Error().Err(err).Str("question_id", id.String()).Msg("failed to end session at deadline")
				return
			}
			if ended {
				log.Info().Str("question_id", id.String()).Msg("session deadline passed - ended by server")
			}
		case <-stop:
			stopAndDrainTimer(t)
			log.Debug().Str("question_id", id.String()).Msg("session timer cancelled")
		}
	}(questionID, timer)

	log.Debug().
		Str("question_id", questionID.String()).
		Time("ends_at", at).
		Dur("wait", wait).
		Msg("scheduled session end timer")
}

// cancelTimerLocked stops the pending end timer, if any. Callers must hold m.mu.
func (m *Manager) cancelTimerLocked() {
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// remainingSeconds rounds d up to whole seconds and clamps at zero
func remainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
