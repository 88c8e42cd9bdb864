package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bftrelay"
)

// mapError converts relay sentinel errors to Forge HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, bftrelay.ErrRelayerNotFound),
		errors.Is(err, bftrelay.ErrExecutionNotFound),
		errors.Is(err, bftrelay.ErrNotRegistered):
		return forge.NotFound(err.Error())
	case errors.Is(err, bftrelay.ErrInvalidRequest),
		errors.Is(err, bftrelay.ErrInvalidRelayer),
		errors.Is(err, bftrelay.ErrInvalidSignature):
		return forge.BadRequest(err.Error())
	case errors.Is(err, bftrelay.ErrUnauthorized),
		errors.Is(err, bftrelay.ErrInsufficientSignatures):
		return forge.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, bftrelay.ErrAlreadyProcessed),
		errors.Is(err, bftrelay.ErrAlreadyRegistered):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, bftrelay.ErrRequestExpired):
		return forge.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, bftrelay.ErrForwardingFailed):
		return forge.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return forge.InternalError(err)
	}
}
