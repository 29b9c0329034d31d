package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/service"
)

type UserHandler struct {
	svc   service.UserService
	trust service.TrustService
}

func NewUserHandler(svc service.UserService, trust service.TrustService) *UserHandler {
	return &UserHandler{svc: svc, trust: trust}
}

// PublicProfileResponse is what a counterpart sees in the swipe deck.
type PublicProfileResponse struct {
	UID             string   `json:"uid"`
	DisplayName     string   `json:"displayName,omitempty"`
	KarmaPoints     int64    `json:"karmaPoints"`
	TrustTier       string   `json:"trustTier"`
	CompletedTrades int      `json:"completedTrades"`
	TotalTrades     int      `json:"totalTrades"`
	Rating          float64  `json:"rating"`
	Styles          []string `json:"styles,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName     *string  `json:"displayName" validate:"omitempty,max=120"`
	Lat             *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng             *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Styles          []string `json:"styles"`
	MinOfferPercent *float64 `json:"minOfferPercent" validate:"omitempty,gte=0,lte=100"`
}

func toPublicProfile(u *model.User) PublicProfileResponse {
	return PublicProfileResponse{
		UID:             u.UID,
		DisplayName:     u.DisplayName,
		KarmaPoints:     u.KarmaPoints,
		TrustTier:       string(u.TrustTier),
		CompletedTrades: u.CompletedTrades,
		TotalTrades:     u.TotalTrades,
		Rating:          u.Rating,
		Styles:          u.StylePreferences,
	}
}

// Me bootstraps the user row on first login and returns the caller's
// profile.
func (h *UserHandler) Me(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	u, err := h.svc.EnsureUser(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toPublicProfile(u))
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), uid, service.UpdateProfileInput{
		DisplayName:      req.DisplayName,
		Lat:              req.Lat,
		Lng:              req.Lng,
		StylePreferences: req.Styles,
		MinOfferPercent:  req.MinOfferPercent,
	})
	if err != nil {
		if err == service.ErrNotFound {
			return respondServiceError(c, err)
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusOK, toPublicProfile(u))
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	u, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toPublicProfile(u))
}

func (h *UserHandler) KarmaLog(c echo.Context) error {
	uid := callerUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	entries, err := h.trust.KarmaLog(c.Request().Context(), uid, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch karma log"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries, "total": len(entries)})
}
