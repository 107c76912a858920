package session

import "errors"

var (
	// ErrNoActiveSession is returned when an operation needs an open session and none exists
	ErrNoActiveSession = errors.New("no active session")
	// ErrQuestionMismatch is returned when an answer names a question other than the active one
	ErrQuestionMismatch = errors.New("answer is for a question that is not active")
)
