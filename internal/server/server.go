package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ropaswap/backend/internal/handler"
	appmw "github.com/ropaswap/backend/internal/middleware"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/ropaswap/backend/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Server struct {
	e     *echo.Echo
	repos []interface{ SetDB(*gorm.DB) }
	sha   string
	build string
}

func New(db *gorm.DB, log *logrus.Logger, firebaseProjectID, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	swipeRepo := repository.NewSwipeRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	buddyRepo := repository.NewSwapBuddyRepository(db)
	karmaRepo := repository.NewKarmaRepository(db)
	convRepo := repository.NewConversationRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	notifySvc := service.NewNotificationService(notifRepo, log)
	trustSvc := service.NewTrustService(userRepo, karmaRepo)
	listingSvc := service.NewListingService(listingRepo)
	userSvc := service.NewUserService(db, userRepo)
	offerSvc := service.NewOfferService(db, offerRepo, listingRepo, userRepo, swipeRepo, matchRepo, convRepo, trustSvc, notifySvc)
	swipeSvc := service.NewSwipeService(db, swipeRepo, listingRepo, matchRepo, convRepo, notifySvc)
	matchSvc := service.NewMatchService(db, matchRepo, offerRepo, userRepo, buddyRepo, convRepo, trustSvc, notifySvc)
	convSvc := service.NewConversationService(convRepo, notifySvc)

	listingHandler := handler.NewListingHandler(listingSvc)
	offerHandler := handler.NewOfferHandler(offerSvc)
	swipeHandler := handler.NewSwipeHandler(swipeSvc)
	matchHandler := handler.NewMatchHandler(matchSvc)
	convHandler := handler.NewConversationHandler(convSvc)
	notifHandler := handler.NewNotificationHandler(notifySvc)
	userHandler := handler.NewUserHandler(userSvc, trustSvc)

	// Auth is optional in local development; without a firebase project
	// the API runs open and trusts nothing role-wise either way.
	guard := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if firebaseProjectID != "" {
		authMw, err := appmw.NewAuthMiddleware(context.Background(), firebaseProjectID)
		if err != nil {
			e.Logger.Fatalf("failed to init firebase auth: %v", err)
		}
		guard = authMw.RequireAuth
	} else {
		log.Warn("FIREBASE_PROJECT_ID not set, running without authentication")
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/:id", listingHandler.Get)
	api.GET("/users/:uid/public", userHandler.GetPublic)

	api.POST("/listings", listingHandler.Create, guard)
	api.DELETE("/listings/:id", listingHandler.Deactivate, guard)
	api.GET("/me", userHandler.Me, guard)
	api.PUT("/me", userHandler.UpdateMe, guard)
	api.GET("/me/listings", listingHandler.ListMine, guard)
	api.GET("/me/karma", userHandler.KarmaLog, guard)

	api.POST("/offers", offerHandler.Create, guard)
	api.POST("/offers/:id/accept", offerHandler.Accept, guard)
	api.POST("/offers/:id/decline", offerHandler.Decline, guard)
	api.POST("/offers/:id/counter", offerHandler.Counter, guard)
	api.POST("/offers/:id/accept-counter", offerHandler.AcceptCounter, guard)
	api.POST("/offers/:id/decline-counter", offerHandler.DeclineCounter, guard)
	api.GET("/me/offers", offerHandler.ListMine, guard)
	api.GET("/me/bids", offerHandler.ListBids, guard)

	api.POST("/swipes", swipeHandler.Record, guard)

	api.GET("/me/matches", matchHandler.ListMine, guard)
	api.GET("/matches/:id", matchHandler.Get, guard)
	api.POST("/matches/:id/accept", matchHandler.Accept, guard)
	api.POST("/matches/:id/confirm-delivery", matchHandler.ConfirmDelivery, guard)
	api.POST("/matches/:id/dispute", matchHandler.OpenDispute, guard)
	api.POST("/matches/:id/resolve", matchHandler.ResolveDispute, guard)

	api.GET("/conversations", convHandler.List, guard)
	api.GET("/conversations/:id", convHandler.Get, guard)
	api.GET("/conversations/:id/messages", convHandler.ListMessages, guard)
	api.POST("/conversations/:id/messages", convHandler.PostMessage, guard)

	api.GET("/notifications", notifHandler.List, guard)
	api.POST("/notifications/read", notifHandler.MarkAllRead, guard)

	return &Server{
		e: e,
		repos: []interface{ SetDB(*gorm.DB) }{
			userRepo, listingRepo, swipeRepo, offerRepo, matchRepo,
			buddyRepo, karmaRepo, convRepo, notifRepo,
		},
		sha:   sha,
		build: buildTime,
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// SetDB late-injects the database into every repository, for deployments
// where the server starts listening before the DB connection is up.
func (s *Server) SetDB(db *gorm.DB) {
	for _, r := range s.repos {
		r.SetDB(db)
	}
}
