package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnknownCollection = errors.New("unknown collection")
)

// NewKind tags kind with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with kind and the failing operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap tags err with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// statusOf maps service errors to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, repository.ErrInvalidPayload):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrNotGuarded), errors.Is(err, repository.ErrEmptyKey):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnknownCollection), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrMatchExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrTooManyRetries):
		return http.StatusServiceUnavailable, "busy"
	}
	return http.StatusInternalServerError, "internal_error"
}

func fail(w http.ResponseWriter, op string, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, Wrap(op, err))
}
