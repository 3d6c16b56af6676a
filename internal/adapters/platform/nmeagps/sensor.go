// Package nmeagps implements ports.PositionSensor on top of a serial
// NMEA GPS receiver. One background reader parses the sentence stream
// and fans fixes out to watchers and one-shot waiters.
package nmeagps

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/florapix/devicehub/internal/core/domain"
)

const knotsToMetersPerSecond = 0.514444

// Sensor reads NMEA sentences from a serial port.
type Sensor struct {
	portName string
	baudRate uint

	mu       sync.Mutex
	port     io.ReadWriteCloser
	last     *domain.Coordinates
	lastAt   time.Time
	altitude *float64
	watchers map[int]func(domain.Coordinates)
	errors   map[int]func(*domain.LocationError)
	waiters  map[int]chan domain.Coordinates
	nextID   int
	running  bool
	stop     chan struct{}
}

// New creates a Sensor for the given serial port, e.g. "/dev/serial0"
// at 9600 baud.
func New(portName string, baudRate uint) *Sensor {
	if baudRate == 0 {
		baudRate = 9600
	}
	return &Sensor{
		portName: portName,
		baudRate: baudRate,
		watchers: make(map[int]func(domain.Coordinates)),
		errors:   make(map[int]func(*domain.LocationError)),
		waiters:  make(map[int]chan domain.Coordinates),
	}
}

// Available reports whether the serial device node exists.
func (s *Sensor) Available() bool {
	_, err := os.Stat(s.portName)
	return err == nil
}

// Current resolves one fix. A cached fix newer than MaximumAge is
// returned immediately; otherwise Current waits for the next valid
// sentence up to the configured timeout.
func (s *Sensor) Current(ctx context.Context, opts domain.PositionOptions) (domain.Coordinates, error) {
	s.mu.Lock()
	if s.last != nil && opts.MaximumAge > 0 && time.Since(s.lastAt) <= opts.MaximumAge {
		coords := *s.last
		s.mu.Unlock()
		return coords, nil
	}
	if err := s.ensureReaderLocked(); err != nil {
		s.mu.Unlock()
		return domain.Coordinates{}, err
	}
	id := s.nextID
	s.nextID++
	ch := make(chan domain.Coordinates, 1)
	s.waiters[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.stopReaderIfIdleLocked()
		s.mu.Unlock()
	}()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultPositionOptions().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case coords := <-ch:
		return coords, nil
	case <-timer.C:
		return domain.Coordinates{}, domain.NewLocationError(domain.LocErrTimeout)
	case <-ctx.Done():
		return domain.Coordinates{}, domain.NewLocationError(domain.LocErrTimeout)
	}
}

// Watch delivers every valid fix to onFix until the stop function runs.
func (s *Sensor) Watch(opts domain.PositionOptions, onFix func(domain.Coordinates), onError func(*domain.LocationError)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureReaderLocked(); err != nil {
		return nil, err
	}

	id := s.nextID
	s.nextID++
	s.watchers[id] = onFix
	if onError != nil {
		s.errors[id] = onError
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			delete(s.errors, id)
			s.stopReaderIfIdleLocked()
			s.mu.Unlock()
		})
	}
	return stop, nil
}

func (s *Sensor) ensureReaderLocked() error {
	if s.running {
		return nil
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        s.portName,
		BaudRate:        s.baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		slog.Error("gps serial open failed", "port", s.portName, "error", err)
		if os.IsPermission(err) {
			return domain.NewLocationError(domain.LocErrPermissionDenied)
		}
		return domain.NewLocationError(domain.LocErrUnavailable)
	}
	s.port = port
	s.running = true
	s.stop = make(chan struct{})
	go s.readLoop(port, s.stop)
	return nil
}

func (s *Sensor) stopReaderIfIdleLocked() {
	if !s.running || len(s.watchers) > 0 || len(s.waiters) > 0 {
		return
	}
	close(s.stop)
	_ = s.port.Close()
	s.running = false
	s.port = nil
}

func (s *Sensor) readLoop(port io.Reader, stop chan struct{}) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		select {
		case <-stop:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			// Partial sentences are routine on a noisy serial line.
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			alt := m.Altitude
			s.mu.Lock()
			s.altitude = &alt
			s.mu.Unlock()
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			if m.Validity != "A" {
				continue
			}
			speed := m.Speed * knotsToMetersPerSecond
			heading := m.Course
			coords := domain.Coordinates{
				Latitude:  m.Latitude,
				Longitude: m.Longitude,
				Speed:     &speed,
				Heading:   &heading,
			}
			s.deliver(coords)
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Error("gps read loop ended", "port", s.portName, "error", err)
		s.mu.Lock()
		handlers := make([]func(*domain.LocationError), 0, len(s.errors))
		for _, h := range s.errors {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()
		locErr := domain.NewLocationError(domain.LocErrUnavailable)
		for _, h := range handlers {
			h(locErr)
		}
	}
}

func (s *Sensor) deliver(coords domain.Coordinates) {
	s.mu.Lock()
	if s.altitude != nil {
		alt := *s.altitude
		coords.Altitude = &alt
	}
	last := coords
	s.last = &last
	s.lastAt = time.Now()
	watchers := make([]func(domain.Coordinates), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	for id, ch := range s.waiters {
		select {
		case ch <- coords:
		default:
		}
		delete(s.waiters, id)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(coords)
	}
}
