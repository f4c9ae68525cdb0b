package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		// Drafts move with every gesture.
		case strings.HasPrefix(path, "/v1/sessions"):
			ttl = "no-store"

		case strings.HasSuffix(path, "/analytics/history"):
			ttl = "private, max-age=300"

		case strings.HasSuffix(path, "/boundary/history"):
			ttl = "private, max-age=30"

		case strings.HasPrefix(path, "/v1/sites/mine"):
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
