package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/florapix/devicehub/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 with a 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/camera", timeout.NewWithContext(CameraStatusHandler(deps), 15*time.Second))
	v1.Post("/camera/capture", timeout.NewWithContext(CaptureHandler(deps), 15*time.Second))
	v1.Post("/camera/resize", timeout.NewWithContext(ResizeHandler(deps), 15*time.Second))
	v1.Post("/camera/dimensions", timeout.NewWithContext(DimensionsHandler(deps), 15*time.Second))
	v1.Post("/camera/gallery", timeout.NewWithContext(GalleryHandler(deps), 15*time.Second))

	v1.Get("/location/current", timeout.NewWithContext(CurrentPositionHandler(deps), 15*time.Second))
	v1.Get("/location/place", timeout.NewWithContext(PlaceNameHandler(deps), 15*time.Second))
	v1.Get("/location/distance", timeout.NewWithContext(DistanceHandler(deps), 15*time.Second))
	v1.Get("/location/saved", timeout.NewWithContext(SavedLocationGetHandler(deps), 15*time.Second))
	v1.Put("/location/saved", timeout.NewWithContext(SavedLocationPutHandler(deps), 15*time.Second))
	v1.Delete("/location/saved", timeout.NewWithContext(SavedLocationDeleteHandler(deps), 15*time.Second))

	v1.Get("/devices/:id/fixes", timeout.NewWithContext(DeviceFixesHandler(deps), 15*time.Second))
	v1.Get("/devices/:id/fixes/latest", timeout.NewWithContext(LatestFixesHandler(deps), 15*time.Second))

	v1.Get("/install", timeout.NewWithContext(InstallStatusHandler(deps), 15*time.Second))
	v1.Post("/install/prompt", timeout.NewWithContext(InstallPromptHandler(deps), 15*time.Second))
	v1.Post("/install/worker", timeout.NewWithContext(WorkerRegisterHandler(deps), 15*time.Second))
	v1.Post("/push/subscribe", timeout.NewWithContext(PushSubscribeHandler(deps), 15*time.Second))
	v1.Post("/notifications/request", timeout.NewWithContext(NotificationPermissionHandler(deps), 15*time.Second))

	v1.Get("/platform/network", timeout.NewWithContext(NetworkStatusHandler(deps), 15*time.Second))
	v1.Get("/platform/storage", timeout.NewWithContext(StorageHandler(deps), 15*time.Second))
	v1.Post("/platform/storage/persist", timeout.NewWithContext(PersistStorageHandler(deps), 15*time.Second))
	v1.Post("/platform/share", timeout.NewWithContext(ShareHandler(deps), 15*time.Second))
	v1.Post("/platform/vibrate", timeout.NewWithContext(VibrateHandler(deps), 15*time.Second))
	v1.Post("/platform/sync", timeout.NewWithContext(BackgroundSyncHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket fix relay
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
