package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/service"
)

type MatchHandler struct {
	svc service.MatchService
}

func NewMatchHandler(svc service.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type MatchResponse struct {
	ID                uint64   `json:"id"`
	UserAUID          string   `json:"userAUid"`
	UserBUID          string   `json:"userBUid"`
	ListingAID        uint64   `json:"listingAId"`
	ListingBID        uint64   `json:"listingBId"`
	Status            string   `json:"status"`
	AgreedPrice       *float64 `json:"agreedPrice,omitempty"`
	Currency          string   `json:"currency"`
	OfferID           *uint64  `json:"offerId,omitempty"`
	ConversationID    uint64   `json:"conversationId,omitempty"`
	SellerConfirmedAt *string  `json:"sellerConfirmedAt,omitempty"`
	BuyerConfirmedAt  *string  `json:"buyerConfirmedAt,omitempty"`
	EscrowReleasedAt  *string  `json:"escrowReleasedAt,omitempty"`
	DisputeRef        *string  `json:"disputeRef,omitempty"`
	DisputeReason     *string  `json:"disputeReason,omitempty"`
	CreatedAt         string   `json:"createdAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func toMatchResponse(m *model.Match) MatchResponse {
	return MatchResponse{
		ID:                m.ID,
		UserAUID:          m.UserAUID,
		UserBUID:          m.UserBUID,
		ListingAID:        m.ListingAID,
		ListingBID:        m.ListingBID,
		Status:            string(m.Status),
		AgreedPrice:       m.AgreedPrice,
		Currency:          m.Currency,
		OfferID:           m.OfferID,
		ConversationID:    m.ConversationID,
		SellerConfirmedAt: formatTimePtr(m.SellerConfirmedAt),
		BuyerConfirmedAt:  formatTimePtr(m.BuyerConfirmedAt),
		EscrowReleasedAt:  formatTimePtr(m.EscrowReleasedAt),
		DisputeRef:        m.DisputeRef,
		DisputeReason:     m.DisputeReason,
		CreatedAt:         m.CreatedAt.Format(time.RFC3339),
	}
}

type OpenDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=release refund"`
}

type ConfirmDeliveryResponse struct {
	Confirmed     bool          `json:"confirmed"`
	BothConfirmed bool          `json:"bothConfirmed"`
	Status        string        `json:"status"`
	Match         MatchResponse `json:"match"`
}

func matchIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (h *MatchHandler) Accept(c echo.Context) error {
	uid := callerUID(c)
	id, err := matchIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid match id"))
	}
	m, err := h.svc.AcceptMatch(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(m))
}

func (h *MatchHandler) ConfirmDelivery(c echo.Context) error {
	uid := callerUID(c)
	id, err := matchIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid match id"))
	}
	res, m, err := h.svc.ConfirmDelivery(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ConfirmDeliveryResponse{
		Confirmed:     res.Confirmed,
		BothConfirmed: res.BothConfirmed,
		Status:        string(res.Status),
		Match:         toMatchResponse(m),
	})
}

func (h *MatchHandler) OpenDispute(c echo.Context) error {
	uid := callerUID(c)
	id, err := matchIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid match id"))
	}
	var req OpenDisputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m, err := h.svc.OpenDispute(c.Request().Context(), id, uid, req.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"disputed": true,
		"match":    toMatchResponse(m),
	})
}

func (h *MatchHandler) ResolveDispute(c echo.Context) error {
	uid := callerUID(c)
	id, err := matchIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid match id"))
	}
	var req ResolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m, err := h.svc.ResolveDispute(c.Request().Context(), id, uid, req.Resolution)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"resolved":   true,
		"resolution": req.Resolution,
		"match":      toMatchResponse(m),
	})
}

func (h *MatchHandler) Get(c echo.Context) error {
	uid := callerUID(c)
	id, err := matchIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid match id"))
	}
	m, err := h.svc.Get(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(m))
}

func (h *MatchHandler) ListMine(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	matches, err := h.svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	list := make([]MatchResponse, 0, len(matches))
	for i := range matches {
		list = append(list, toMatchResponse(&matches[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"matches": list, "total": len(list)})
}
