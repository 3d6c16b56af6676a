package simdev

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
)

// Sensor implements ports.PositionSensor with a random walk around a
// base coordinate.
type Sensor struct {
	base     domain.Coordinates
	interval time.Duration

	mu      sync.Mutex
	rng     *rand.Rand
	latency time.Duration
}

// NewSensor creates a simulated sensor centered on the given point.
// interval is the watch delivery period; zero means one second.
func NewSensor(lat, lon float64, interval time.Duration) *Sensor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sensor{
		base:     domain.Coordinates{Latitude: lat, Longitude: lon},
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetLatency delays every Current call, for exercising timeout handling.
func (s *Sensor) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

func (s *Sensor) Available() bool { return true }

func (s *Sensor) Current(ctx context.Context, opts domain.PositionOptions) (domain.Coordinates, error) {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultPositionOptions().Timeout
	}
	if latency > 0 {
		if latency >= timeout {
			select {
			case <-time.After(timeout):
				return domain.Coordinates{}, domain.NewLocationError(domain.LocErrTimeout)
			case <-ctx.Done():
				return domain.Coordinates{}, domain.NewLocationError(domain.LocErrTimeout)
			}
		}
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return domain.Coordinates{}, domain.NewLocationError(domain.LocErrTimeout)
		}
	}
	return s.fix(), nil
}

func (s *Sensor) Watch(opts domain.PositionOptions, onFix func(domain.Coordinates), onError func(*domain.LocationError)) (func(), error) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				onFix(s.fix())
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}
	return stop, nil
}

// fix jitters the base point by up to roughly ten meters and reports a
// plausible accuracy.
func (s *Sensor) fix() domain.Coordinates {
	s.mu.Lock()
	latJitter := (s.rng.Float64() - 0.5) * 0.0002
	lonJitter := (s.rng.Float64() - 0.5) * 0.0002
	accuracy := 5 + s.rng.Float64()*10
	s.mu.Unlock()

	return domain.Coordinates{
		Latitude:  s.base.Latitude + latJitter,
		Longitude: s.base.Longitude + lonJitter,
		Accuracy:  &accuracy,
	}
}
