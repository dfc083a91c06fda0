// Package server assembles the HTTP API.
package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/auth"
	"github.com/sudo-init-do/agricompass/internal/fieldreport"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/logging"
	"github.com/sudo-init-do/agricompass/internal/marketplace"
	"github.com/sudo-init-do/agricompass/internal/messaging"
	"github.com/sudo-init-do/agricompass/internal/metrics"
	mware "github.com/sudo-init-do/agricompass/internal/middleware"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/user"
)

type Options struct {
	Store      store.Store
	JWTSecret  string
	BcryptCost int
	// RateLimit is the per-IP request rate allowed on /auth routes.
	RateLimit float64
	Log       logrus.FieldLogger
}

// New wires services to routes. The returned echo instance is ready to Start.
func New(opts Options) *echo.Echo {
	log := opts.Log

	authSvc := auth.NewService(opts.Store, auth.NewTokenIssuer(opts.JWTSecret), opts.BcryptCost, log)
	authH := auth.NewHandler(authSvc)
	userH := user.NewHandler(user.NewService(opts.Store, log))
	marketH := marketplace.NewHandler(
		marketplace.NewListingService(opts.Store, log),
		marketplace.NewOrderService(opts.Store, log),
	)
	msgH := messaging.NewHandler(messaging.NewService(opts.Store, log))
	reportH := fieldreport.NewHandler(fieldreport.NewService(opts.Store, log))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	authed := mware.TokenAuth(authSvc)

	// Public routes
	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth", mware.RateLimit(opts.RateLimit))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/logout", authH.Logout, authed)

	e.GET("/listings", marketH.GetListings)
	e.GET("/listings/:id", marketH.GetListing)
	e.GET("/users/:id/profile", userH.GetPublicProfile)

	// Protected routes. Auth is attached per route so unknown paths stay 404.
	e.GET("/me", authH.Me, authed)

	// role checks for these live in the services, which carry the
	// caller-facing messages
	e.POST("/listings", marketH.CreateListing, authed)
	e.PATCH("/listings/:id/status", marketH.UpdateListingStatus, authed)

	e.POST("/orders", marketH.CreateOrder, authed)
	e.GET("/orders", marketH.GetMyOrders, authed)

	e.POST("/messages", msgH.SendMessage, authed)
	e.GET("/messages", msgH.GetInbox, authed)

	e.PATCH("/users/:id/verify", userH.Verify, authed)

	// Officer routes
	officersOnly := mware.RequireRoles(identity.RoleOfficer, identity.RoleAdmin)
	e.POST("/field-reports", reportH.Create, authed, officersOnly)
	e.GET("/field-reports", reportH.List, authed, officersOnly)

	return e
}
