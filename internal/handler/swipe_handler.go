package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/service"
)

type SwipeHandler struct {
	svc service.SwipeService
}

func NewSwipeHandler(svc service.SwipeService) *SwipeHandler {
	return &SwipeHandler{svc: svc}
}

type RecordSwipeRequest struct {
	ListingID uint64 `json:"listingId" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=LEFT RIGHT SUPER"`
}

type RecordSwipeResponse struct {
	Matched bool           `json:"matched"`
	Match   *MatchResponse `json:"match,omitempty"`
}

func (h *SwipeHandler) Record(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req RecordSwipeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	match, err := h.svc.Record(c.Request().Context(), uid, req.ListingID, model.SwipeDirection(req.Direction))
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := RecordSwipeResponse{Matched: match != nil}
	if match != nil {
		mr := toMatchResponse(match)
		resp.Match = &mr
	}
	return c.JSON(http.StatusOK, resp)
}
