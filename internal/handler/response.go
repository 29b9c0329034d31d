package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondServiceError maps the service sentinels onto HTTP statuses.
// State conflicts surface as 409 with the reason in the message so the
// client can refresh its view.
func respondServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotAdmin):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", err.Error()))
	case errors.Is(err, service.ErrSelfOffer):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("self_offer", err.Error()))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, NewErrorResponse("rate_limited", err.Error()))
	case errors.Is(err, service.ErrOfferExpired),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrNotCountered),
		errors.Is(err, service.ErrNotAccepted),
		errors.Is(err, service.ErrAlreadyConfirmed),
		errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, NewErrorResponse("state_conflict", err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "unexpected error"))
	}
}

func callerUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}
