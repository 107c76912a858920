package quiz

import "errors"

var (
	// ErrNothingPending is returned by Start when no question is waiting
	ErrNothingPending = errors.New("no pending question")
	// ErrNotActive is returned by Submit outside an active question
	ErrNotActive = errors.New("no active question")
	// ErrSubmitInFlight is returned while an earlier submission is being sent
	ErrSubmitInFlight = errors.New("submission already in progress")
)
