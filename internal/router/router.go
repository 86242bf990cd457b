package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/homefix-api/internal/config"
	"github.com/noah-isme/homefix-api/internal/handler"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler           *handler.ChatHandler
	PresenceHandler       *handler.PresenceHandler
	CatalogHandler        *handler.CatalogHandler
	OnboardingHandler     *handler.OnboardingHandler
	ProfileHandler        *handler.ProfileHandler
	ServiceRequestHandler *handler.ServiceRequestHandler
	UploadHandler         *handler.UploadHandler
	JWTMiddleware         fiber.Handler
	RealtimeTransport     string
	HealthProbes          map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.RealtimeTransport, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Catalog is public
	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(api.Group("/categories"))
	}

	// Chat (threads, messages, presence, websocket)
	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.LimitSocketSends(middleware.NewKeyedLimiter(cfg.SendRateLimit, cfg.SendRateWindow))
		deps.ChatHandler.Register(chat, middleware.RateLimit("chat-send", cfg.SendRateLimit, cfg.SendRateWindow))

		if deps.PresenceHandler != nil {
			deps.PresenceHandler.Register(chat)
		}
	}

	// Professional sign-up wizard
	if deps.OnboardingHandler != nil {
		onboarding := api.Group("/onboarding", jwtMiddleware, middleware.RequireRole(models.RoleProfessional, models.RoleAdmin))
		deps.OnboardingHandler.Register(onboarding)
	}

	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(api.Group("/professionals", jwtMiddleware))
	}

	if deps.ServiceRequestHandler != nil {
		deps.ServiceRequestHandler.Register(api.Group("/service-requests", jwtMiddleware))
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", jwtMiddleware, middleware.RateLimit("uploads", cfg.SendRateLimit, cfg.SendRateWindow))
		deps.UploadHandler.Register(uploads)
	}
}
