package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/service"
)

type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type PostMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

func convIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"conversations": list, "total": len(list)})
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid := callerUID(c)
	id, err := convIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, err := h.svc.Get(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cv)
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid := callerUID(c)
	id, err := convIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs, "total": len(msgs)})
}

func (h *ConversationHandler) PostMessage(c echo.Context) error {
	uid := callerUID(c)
	id, err := convIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	msg, err := h.svc.PostMessage(c.Request().Context(), id, uid, req.Body)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
