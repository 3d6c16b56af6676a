package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/florapix/devicehub/internal/adapters/http"
	"github.com/florapix/devicehub/internal/adapters/localstore"
	natsadapter "github.com/florapix/devicehub/internal/adapters/nats"
	"github.com/florapix/devicehub/internal/adapters/nominatim"
	"github.com/florapix/devicehub/internal/adapters/platform/nmeagps"
	"github.com/florapix/devicehub/internal/adapters/platform/simdev"
	"github.com/florapix/devicehub/internal/adapters/postgres"
	"github.com/florapix/devicehub/internal/adapters/valkey"
	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/core/usecases"
	"github.com/florapix/devicehub/internal/pkg/config"
	"github.com/florapix/devicehub/internal/pkg/logging"
	"github.com/florapix/devicehub/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("devicehub-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Fix-history database. The capability endpoints work without it, so
	// a missing database degrades rather than aborts.
	var db *postgres.DB
	var fixes ports.FixRepository
	if d, err := postgres.New(ctx, cfg.Database.DSN(), postgres.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}); err != nil {
		slog.Warn("database unavailable, fix history disabled", "error", err)
	} else {
		db = d
		fixes = postgres.NewFixRepo(db)
		defer db.Close()
	}

	// Geocode cache
	var cache *valkey.Cache
	var cacheSvc ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, geocode caching disabled", "error", err)
	} else {
		cache = c
		cacheSvc = c
		defer cache.Close()
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, fix relay disabled", "error", err)
	}

	// Durable fix recorder: tracker publishes, this consumer persists.
	if fixes != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeFixes(ctx, func(ctx context.Context, fix *domain.PositionFix) error {
				return fixes.Insert(ctx, fix)
			}); err != nil {
				slog.Warn("fix recorder subscribe failed", "error", err)
			}
		}
	}

	// Platform devices
	sensor := buildSensor(cfg)
	camera := simdev.NewCamera(time.Duration(cfg.Camera.WarmupMs) * time.Millisecond)
	gallery := &simdev.Gallery{Dir: filepath.Join(cfg.Platform.DataDir, "gallery")}

	store, err := localstore.New(cfg.Platform.DataDir)
	if err != nil {
		log.Fatalf("data dir: %v", err)
	}

	geocoder := nominatim.New(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
	)

	// Use cases
	cameraSvc := usecases.NewCameraService(camera, gallery)
	locationSvc := usecases.NewLocationService(sensor, geocoder, store, cacheSvc, cfg.Geocoder.CacheTTLSeconds)
	installSvc := usecases.NewInstallService(usecases.InstallPlatform{
		Env:      simdev.NewEnv(),
		Workers:  &simdev.Workers{},
		Notifs:   &simdev.Notifications{},
		Storage:  simdev.NewStorage(),
		Share:    &simdev.Share{},
		Haptics:  &simdev.Haptics{},
		WakeLock: &simdev.WakeLocker{},
	}, usecases.WorkerConfig{
		Script:       cfg.Platform.WorkerScript,
		Scope:        cfg.Platform.WorkerScope,
		PreviewHosts: cfg.Platform.PreviewHosts,
	}, store)
	defer installSvc.Close()

	deps := &http.Dependencies{
		Camera:   cameraSvc,
		Location: locationSvc,
		Install:  installSvc,
		Fixes:    fixes,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // data-URL images get big
		AppName:      "FloraPix DeviceHub",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.florapix.app",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func buildSensor(cfg *config.Config) ports.PositionSensor {
	switch cfg.Sensor.Driver {
	case "nmea":
		return nmeagps.New(cfg.Sensor.Port, uint(cfg.Sensor.BaudRate))
	default:
		return simdev.NewSensor(
			cfg.Sensor.Latitude,
			cfg.Sensor.Longitude,
			time.Duration(cfg.Sensor.IntervalS)*time.Second,
		)
	}
}
