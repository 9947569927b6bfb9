package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

// httpError maps a service error to the status code clients see. notFound is
// the message used for ErrNotFound so each route can phrase it.
func httpError(err error, notFound string) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validationMessage(err))
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, models.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, "booking has already been decided").SetInternal(err)
	case errors.Is(err, models.ErrAuth):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, models.ErrPersistence):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable, please retry").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
	}
}

// validationMessage drops the operation prefix, keeping only the list of
// problems after "validation error: ".
func validationMessage(err error) string {
	msg := err.Error()
	marker := models.ErrValidation.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
