package questions

import "errors"

var (
	// ErrQuestionNotFound is returned when no question has the requested id
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateAnswer is returned when a student answers the same question twice
	ErrDuplicateAnswer = errors.New("student already answered this question")
	// ErrInvalidQuestion is returned when a create request fails validation
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidAnswer is returned when an answer fails validation
	ErrInvalidAnswer = errors.New("invalid answer")
)
