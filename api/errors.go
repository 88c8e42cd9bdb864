package api

import (
	"errors"
	"net/http"

	"github.com/xraph/bftrelay"
)

// statusFor maps relay sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bftrelay.ErrInvalidRequest),
		errors.Is(err, bftrelay.ErrInvalidRelayer),
		errors.Is(err, bftrelay.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, bftrelay.ErrUnauthorized),
		errors.Is(err, bftrelay.ErrInsufficientSignatures):
		return http.StatusForbidden
	case errors.Is(err, bftrelay.ErrRelayerNotFound),
		errors.Is(err, bftrelay.ErrExecutionNotFound),
		errors.Is(err, bftrelay.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, bftrelay.ErrAlreadyRegistered),
		errors.Is(err, bftrelay.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, bftrelay.ErrRequestExpired):
		return http.StatusGone
	case errors.Is(err, bftrelay.ErrForwardingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeRelayError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
