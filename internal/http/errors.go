package http

import (
	"errors"
	"net/http"

	"plata/internal/budget"
	"plata/internal/core"
	"plata/internal/planner"
	"plata/internal/services"
	"plata/internal/store"
)

// statusForError maps domain errors onto HTTP status codes. Anything
// unrecognized is treated as internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrNoEpisode):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidSpendType),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, budget.ErrPercentagesSum),
		errors.Is(err, planner.ErrUnknownSource),
		errors.Is(err, planner.ErrInvalidMove),
		errors.Is(err, planner.ErrNoSourceChosen):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
