package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/darukaa/siteboundary/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Gestures arrive in bursts while drawing, so the budget is per user
	// when the gateway identifies one.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if user := c.Get(HeaderUserID); user != "" {
				return "user:" + user
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware("/v1/sessions", "/metrics"))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	site := ScopeLogger("site_id")
	session := ScopeLogger("session_id")

	// Sites. /sites/mine must precede /sites/:id.
	v1.Get("/sites", timeout.NewWithContext(ListSitesHandler(deps), requestTimeout))
	v1.Post("/sites", timeout.NewWithContext(CreateSiteHandler(deps), requestTimeout))
	v1.Get("/sites/mine", timeout.NewWithContext(MySitesHandler(deps), requestTimeout))
	v1.Get("/sites/:id", site, timeout.NewWithContext(GetSiteHandler(deps), requestTimeout))
	v1.Patch("/sites/:id", site, timeout.NewWithContext(UpdateSiteHandler(deps), requestTimeout))
	v1.Put("/sites/:id", site, timeout.NewWithContext(UpdateSiteHandler(deps), requestTimeout))
	v1.Delete("/sites/:id", site, timeout.NewWithContext(DeleteSiteHandler(deps), requestTimeout))
	v1.Get("/sites/:id/boundary", site, timeout.NewWithContext(SiteBoundaryHandler(deps), requestTimeout))
	v1.Get("/sites/:id/boundary/history", site, timeout.NewWithContext(BoundaryHistoryHandler(deps), requestTimeout))
	v1.Get("/sites/:id/analytics/history", site, timeout.NewWithContext(AnalyticsHistoryHandler(deps), requestTimeout))

	// Projects
	project := ScopeLogger("project_id")
	v1.Get("/projects", timeout.NewWithContext(ListProjectsHandler(deps), requestTimeout))
	v1.Post("/projects", timeout.NewWithContext(CreateProjectHandler(deps), requestTimeout))
	v1.Get("/projects/:id", project, timeout.NewWithContext(GetProjectHandler(deps), requestTimeout))
	v1.Patch("/projects/:id", project, timeout.NewWithContext(UpdateProjectHandler(deps), requestTimeout))
	v1.Put("/projects/:id", project, timeout.NewWithContext(UpdateProjectHandler(deps), requestTimeout))
	v1.Delete("/projects/:id", project, timeout.NewWithContext(DeleteProjectHandler(deps), requestTimeout))
	v1.Get("/projects/:id/sites", project, timeout.NewWithContext(ProjectSitesHandler(deps), requestTimeout))

	// Boundary edit sessions
	v1.Post("/sites/:id/sessions", site, timeout.NewWithContext(OpenSessionHandler(deps), requestTimeout))
	v1.Get("/sessions/:id", session, GetSessionHandler(deps))
	v1.Get("/sessions/:id/draft", session, timeout.NewWithContext(SessionDraftHandler(deps), requestTimeout))
	v1.Post("/sessions/:id/gestures", session, SessionGestureHandler(deps))
	v1.Post("/sessions/:id/save", session, timeout.NewWithContext(SaveSessionHandler(deps), requestTimeout))
	v1.Delete("/sessions/:id", session, timeout.NewWithContext(CloseSessionHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sessions/:id", websocket.New(SessionSocketHandler(deps)))
}
