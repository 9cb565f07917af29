package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusmarket/campus-market-api/internal/config"
	"github.com/campusmarket/campus-market-api/internal/handler"
	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ListingHandler   *handler.ListingHandler
	MessagingHandler *handler.MessagingHandler
	OfferHandler     *handler.OfferHandler
	SavedHandler     *handler.SavedHandler
	UploadHandler    *handler.UploadHandler
	RealtimeHandler  *handler.RealtimeHandler
	JWTMiddleware    fiber.Handler
	VerifiedGate     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	verifiedGate := deps.VerifiedGate
	if verifiedGate == nil {
		verifiedGate = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ListingHandler != nil {
		// Browsing stays public; anonymous viewers still count toward the
		// engagement metrics. Mutations and conversations share the
		// /listings prefix, so their guards attach per route.
		listings := api.Group("/listings")
		deps.ListingHandler.RegisterPublic(listings)
		deps.ListingHandler.RegisterProtected(listings, jwtMiddleware, verifiedGate)

		conversationGuards := []fiber.Handler{
			jwtMiddleware,
			verifiedGate,
			middleware.RateLimit("conversations", 30, time.Minute),
		}
		if deps.MessagingHandler != nil {
			deps.MessagingHandler.Register(listings, conversationGuards...)
		}
		if deps.OfferHandler != nil {
			deps.OfferHandler.Register(listings, conversationGuards...)
		}
	}

	if deps.SavedHandler != nil {
		saved := api.Group("/saved", jwtMiddleware, verifiedGate)
		deps.SavedHandler.Register(saved)
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", jwtMiddleware, verifiedGate,
			middleware.RateLimit("uploads", 10, time.Minute))
		deps.UploadHandler.Register(uploads)
	}

	if deps.RealtimeHandler != nil {
		realtime := api.Group("/realtime")
		deps.RealtimeHandler.Register(realtime)
	}
}
