package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint, unless the handler already set one. Device state is volatile,
// so most endpoints get short or no caching.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/location/place"):
			ttl = "public, max-age=3600" // place names barely change

		case strings.HasPrefix(path, "/v1/location/distance"):
			ttl = "public, max-age=3600" // pure computation

		case strings.HasPrefix(path, "/v1/location"):
			ttl = "no-store" // live sensor data

		case strings.HasPrefix(path, "/v1/camera"):
			ttl = "no-store" // capability probes can flip on permission changes

		case strings.Contains(path, "/fixes"):
			ttl = "public, max-age=30" // history trails the tracker slightly

		case strings.HasPrefix(path, "/v1/install") || strings.HasPrefix(path, "/v1/platform"):
			ttl = "no-store" // install and network state are per-moment

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
