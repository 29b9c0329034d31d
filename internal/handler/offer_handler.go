package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/service"
)

type OfferHandler struct {
	svc service.OfferService
}

func NewOfferHandler(svc service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

type CreateOfferRequest struct {
	ListingID uint64  `json:"listingId" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"required,len=3"`
}

type CounterOfferRequest struct {
	CounterAmount float64 `json:"counterAmount" validate:"required,gt=0"`
}

type OfferResponse struct {
	ID             uint64   `json:"id"`
	ListingID      uint64   `json:"listingId"`
	BuyerUID       string   `json:"buyerUid"`
	SellerUID      string   `json:"sellerUid"`
	Amount         float64  `json:"amount"`
	Currency       string   `json:"currency"`
	OfferType      string   `json:"offerType"`
	Status         string   `json:"status"`
	CompatScore    float64  `json:"compatScore"`
	DistanceKm     float64  `json:"distanceKm"`
	CounterAmount  *float64 `json:"counterAmount,omitempty"`
	RopaHeldAmount *float64 `json:"ropaHeldAmount,omitempty"`
	EscrowStatus   string   `json:"escrowStatus,omitempty"`
	MatchID        *uint64  `json:"matchId,omitempty"`
	ExpiresAt      string   `json:"expiresAt"`
	CreatedAt      string   `json:"createdAt"`
}

type CreateOfferResponse struct {
	Offer        OfferResponse `json:"offer"`
	AutoDeclined bool          `json:"autoDeclined"`
}

type OfferWithMatchResponse struct {
	Offer OfferResponse `json:"offer"`
	Match MatchResponse `json:"match"`
}

func toOfferResponse(o *model.Offer) OfferResponse {
	return OfferResponse{
		ID:             o.ID,
		ListingID:      o.ListingID,
		BuyerUID:       o.BuyerUID,
		SellerUID:      o.SellerUID,
		Amount:         o.Amount,
		Currency:       o.Currency,
		OfferType:      string(o.OfferType),
		Status:         string(o.Status),
		CompatScore:    o.CompatScore,
		DistanceKm:     o.DistanceKm,
		CounterAmount:  o.CounterAmount,
		RopaHeldAmount: o.RopaHeldAmount,
		EscrowStatus:   string(o.EscrowStatus),
		MatchID:        o.MatchID,
		ExpiresAt:      o.ExpiresAt.Format(time.RFC3339),
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *OfferHandler) Create(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	offer, autoDeclined, err := h.svc.Create(c.Request().Context(), uid, req.ListingID, req.Amount, req.Currency)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, CreateOfferResponse{
		Offer:        toOfferResponse(offer),
		AutoDeclined: autoDeclined,
	})
}

func offerIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (h *OfferHandler) Accept(c echo.Context) error {
	uid := callerUID(c)
	id, err := offerIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid offer id"))
	}
	offer, match, err := h.svc.Accept(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, OfferWithMatchResponse{
		Offer: toOfferResponse(offer),
		Match: toMatchResponse(match),
	})
}

func (h *OfferHandler) Decline(c echo.Context) error {
	uid := callerUID(c)
	id, err := offerIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid offer id"))
	}
	offer, err := h.svc.Decline(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResponse(offer))
}

func (h *OfferHandler) Counter(c echo.Context) error {
	uid := callerUID(c)
	id, err := offerIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid offer id"))
	}
	var req CounterOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	offer, err := h.svc.Counter(c.Request().Context(), id, uid, req.CounterAmount)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResponse(offer))
}

func (h *OfferHandler) AcceptCounter(c echo.Context) error {
	uid := callerUID(c)
	id, err := offerIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid offer id"))
	}
	offer, match, err := h.svc.AcceptCounter(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, OfferWithMatchResponse{
		Offer: toOfferResponse(offer),
		Match: toMatchResponse(match),
	})
}

func (h *OfferHandler) DeclineCounter(c echo.Context) error {
	uid := callerUID(c)
	id, err := offerIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid offer id"))
	}
	offer, err := h.svc.DeclineCounter(c.Request().Context(), id, uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResponse(offer))
}

func (h *OfferHandler) ListMine(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	offers, err := h.svc.ListForSeller(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferListResponse(offers))
}

func (h *OfferHandler) ListBids(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	offers, err := h.svc.ListForBuyer(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferListResponse(offers))
}

func toOfferListResponse(offers []model.Offer) map[string]interface{} {
	list := make([]OfferResponse, 0, len(offers))
	for i := range offers {
		list = append(list, toOfferResponse(&offers[i]))
	}
	return map[string]interface{}{"offers": list, "total": len(list)}
}
