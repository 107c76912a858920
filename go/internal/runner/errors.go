package runner

import "errors"

var (
	// ErrEmptyCode is returned when there is nothing to run
	ErrEmptyCode = errors.New("code is required")
	// ErrCodeTooLarge is returned when the source exceeds the configured limit
	ErrCodeTooLarge = errors.New("code is too large")
)
