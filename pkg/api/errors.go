package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/spiderbench/evalcore/pkg/apperrors"
)

// mapServiceError maps domain-layer errors to HTTP status codes and the
// spec's structured {detail} body, per spec.md §6/§7.
func mapServiceError(err error) *echo.HTTPError {
	if apperrors.IsValidationError(err) {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: err.Error()})
	}
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, errorBody{Detail: "run not found"})
	case errors.Is(err, apperrors.ErrNotCancellable):
		return echo.NewHTTPError(http.StatusConflict, errorBody{Detail: "run is not in a cancellable state"})
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, errorBody{Detail: "resource already exists"})
	case errors.Is(err, apperrors.ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, errorBody{Detail: "concurrent modification detected"})
	}

	slog.Error("unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, errorBody{Detail: "internal server error"})
}
