package api

import (
	"errors"
	"net/http"

	"github.com/mcdev12/classroom/go/internal/questions"
	"github.com/mcdev12/classroom/go/internal/runner"
	"github.com/mcdev12/classroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnauthorized is returned when the bearer token is missing or wrong
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest is returned for bodies that cannot be decoded
	ErrBadRequest = errors.New("bad request")
	// ErrCodeRunDisabled is returned by submitCode when no runner is configured
	ErrCodeRunDisabled = errors.New("code execution is disabled on this server")
)

// statusCode maps domain errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, questions.ErrInvalidQuestion),
		errors.Is(err, questions.ErrInvalidAnswer),
		errors.Is(err, runner.ErrEmptyCode):
		return http.StatusBadRequest
	case errors.Is(err, runner.ErrCodeTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCodeRunDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, questions.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, session.ErrQuestionMismatch),
		errors.Is(err, questions.ErrDuplicateAnswer):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	writeJSON(w, code, StatusResponse{Status: StatusError, Message: message})
}
