// The tracker daemon watches the position sensor and publishes every fix
// to the broker, where the API's durable consumer records it and the
// WebSocket relay streams it to clients.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	natsadapter "github.com/florapix/devicehub/internal/adapters/nats"
	"github.com/florapix/devicehub/internal/adapters/platform/nmeagps"
	"github.com/florapix/devicehub/internal/adapters/platform/simdev"
	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/pkg/config"
	"github.com/florapix/devicehub/internal/pkg/logging"
	"github.com/florapix/devicehub/internal/pkg/metrics"
)

func main() {
	cfg, err := config.Load("devicehub-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	var sensor ports.PositionSensor
	source := cfg.Sensor.Driver
	switch source {
	case "nmea":
		sensor = nmeagps.New(cfg.Sensor.Port, uint(cfg.Sensor.BaudRate))
	default:
		source = "sim"
		sensor = simdev.NewSensor(
			cfg.Sensor.Latitude,
			cfg.Sensor.Longitude,
			time.Duration(cfg.Sensor.IntervalS)*time.Second,
		)
	}
	if !sensor.Available() {
		log.Fatalf("position sensor not available (driver %q)", source)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceID := cfg.Sensor.DeviceID
	interval := time.Duration(cfg.Sensor.IntervalS) * time.Second

	// The NMEA stream delivers about one fix per second; throttle
	// publishing down to the configured cadence.
	var mu sync.Mutex
	var lastPublished time.Time

	stop, err := sensor.Watch(domain.DefaultWatchOptions(), func(coords domain.Coordinates) {
		mu.Lock()
		if time.Since(lastPublished) < interval {
			mu.Unlock()
			return
		}
		lastPublished = time.Now()
		mu.Unlock()

		fix := &domain.PositionFix{
			Time:        time.Now().UTC(),
			DeviceID:    deviceID,
			Source:      source,
			Coordinates: coords,
		}
		if err := publisher.PublishFix(ctx, fix); err != nil {
			slog.Error("publish fix failed", "device", deviceID, "error", err)
			return
		}
		metrics.FixesPublished.WithLabelValues(deviceID).Inc()
		slog.Debug("fix published",
			"device", deviceID,
			"lat", coords.Latitude,
			"lon", coords.Longitude,
		)
	}, func(locErr *domain.LocationError) {
		slog.Error("sensor error", "code", locErr.Code, "message", locErr.Message)
	})
	if err != nil {
		log.Fatalf("watch: %v", err)
	}
	defer stop()

	slog.Info("tracker started", "device", deviceID, "driver", source, "interval", interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
}
