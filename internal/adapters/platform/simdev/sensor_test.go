package simdev

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
)

func TestCurrent_NearBase(t *testing.T) {
	s := NewSensor(43.263, -2.935, time.Second)

	coords, err := s.Current(context.Background(), domain.DefaultPositionOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(coords.Latitude-43.263) > 0.001 || math.Abs(coords.Longitude+2.935) > 0.001 {
		t.Errorf("fix drifted too far from base: %+v", coords)
	}
	if coords.Accuracy == nil || *coords.Accuracy < 5 || *coords.Accuracy > 15 {
		t.Errorf("expected accuracy between 5 and 15 meters, got %v", coords.Accuracy)
	}
}

func TestCurrent_SlowSensorTimesOut(t *testing.T) {
	s := NewSensor(0, 0, time.Second)
	s.SetLatency(200 * time.Millisecond)

	opts := domain.DefaultPositionOptions()
	opts.Timeout = time.Millisecond

	_, err := s.Current(context.Background(), opts)
	var locErr *domain.LocationError
	if !errors.As(err, &locErr) {
		t.Fatalf("expected LocationError, got %v", err)
	}
	if locErr.Code != domain.LocErrTimeout {
		t.Errorf("expected code %d, got %d", domain.LocErrTimeout, locErr.Code)
	}
	if locErr.Message != "Timeout. Location request took too long." {
		t.Errorf("unexpected message: %q", locErr.Message)
	}
}

func TestWatch_DeliversAndStops(t *testing.T) {
	s := NewSensor(1, 1, 10*time.Millisecond)

	var mu sync.Mutex
	var count int
	stop, err := s.Watch(domain.DefaultWatchOptions(), func(domain.Coordinates) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	stop()
	mu.Lock()
	seen := count
	mu.Unlock()
	if seen == 0 {
		t.Fatal("expected at least one fix")
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()
	if after > seen+1 {
		t.Errorf("fixes kept arriving after stop: %d -> %d", seen, after)
	}

	// A second stop is a no-op.
	stop()
}
