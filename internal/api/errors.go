package api

import (
	"errors"
	"net/http"

	"github.com/signalforge/arraysim/core"
	"github.com/signalforge/arraysim/internal/sim/state"
)

// httpStatus maps simulator errors onto HTTP status codes for the API surface.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, core.ErrUnknownScenario):
		return http.StatusNotFound

	case errors.Is(err, state.ErrNotConfigured),
		errors.Is(err, state.ErrNoScenario):
		return http.StatusConflict

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidSteering),
		errors.Is(err, core.ErrBadConfig),
		errors.Is(err, core.ErrBadScenario),
		errors.Is(err, core.ErrDimensionMismatch):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
