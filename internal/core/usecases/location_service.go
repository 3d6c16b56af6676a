package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/pkg/geospatial"
	"github.com/florapix/devicehub/internal/pkg/metrics"
)

// UnknownLocation is the reverse-geocoding fallback when the provider
// fails or returns no usable place name.
const UnknownLocation = "Unknown location"

// LocationService mediates access to the device position sensor and
// translates coordinates into distances and place names.
type LocationService struct {
	sensor     ports.PositionSensor
	geocoder   ports.Geocoder
	store      ports.LocationStore
	cache      ports.CacheService
	geocodeTTL int

	mu      sync.Mutex
	nextID  int
	watches map[int]func()
}

// NewLocationService creates a new LocationService. geocodeTTL is the
// reverse-geocode cache lifetime in seconds.
func NewLocationService(
	sensor ports.PositionSensor,
	geocoder ports.Geocoder,
	store ports.LocationStore,
	cache ports.CacheService,
	geocodeTTL int,
) *LocationService {
	if geocodeTTL <= 0 {
		geocodeTTL = 86400
	}
	return &LocationService{
		sensor:     sensor,
		geocoder:   geocoder,
		store:      store,
		cache:      cache,
		geocodeTTL: geocodeTTL,
		watches:    make(map[int]func()),
	}
}

// Available reports whether the platform exposes a location sensor.
func (s *LocationService) Available() bool {
	return s.sensor != nil && s.sensor.Available()
}

// CurrentPosition resolves one fix. A nil opts uses the one-shot defaults;
// zero durations in a supplied opts are filled field-by-field from them.
// Failures are always *domain.LocationError values.
func (s *LocationService) CurrentPosition(ctx context.Context, opts *domain.PositionOptions) (domain.Coordinates, error) {
	if !s.Available() {
		return domain.Coordinates{}, domain.NewLocationError(domain.LocErrUnsupported)
	}

	merged := mergeOptions(opts, domain.DefaultPositionOptions())
	coords, err := s.sensor.Current(ctx, merged)
	if err != nil {
		return domain.Coordinates{}, asLocationError(err)
	}
	return coords, nil
}

// WatchPosition registers a continuous position callback and returns a
// watch handle, or 0 when the sensor capability is absent. A sensor error
// invokes onError (when non-nil) but does not cancel the watch.
func (s *LocationService) WatchPosition(
	onFix func(domain.Coordinates),
	onError func(*domain.LocationError),
	opts *domain.PositionOptions,
) int {
	if !s.Available() {
		return 0
	}

	merged := mergeOptions(opts, domain.DefaultWatchOptions())
	stop, err := s.sensor.Watch(merged, onFix, func(lerr *domain.LocationError) {
		if onError != nil {
			onError(lerr)
		}
	})
	if err != nil {
		slog.Warn("position watch failed to start", "error", err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.watches[id] = stop
	return id
}

// ClearWatch stops a running watch. Unknown handles are ignored.
func (s *LocationService) ClearWatch(id int) {
	s.mu.Lock()
	stop, ok := s.watches[id]
	delete(s.watches, id)
	s.mu.Unlock()

	if ok {
		stop()
	}
}

// Distance returns the great-circle distance between two samples in
// kilometers.
func (s *LocationService) Distance(a, b domain.Coordinates) float64 {
	return geospatial.Distance(a, b)
}

// PlaceName resolves coordinates to a human-readable place name via the
// reverse geocoder, caching results. It never fails: any provider error
// or empty result degrades to the UnknownLocation fallback.
func (s *LocationService) PlaceName(ctx context.Context, coords domain.Coordinates) string {
	cacheKey := fmt.Sprintf("geocode:%.4f:%.4f", coords.Latitude, coords.Longitude)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && len(data) > 0 {
			metrics.CacheHits.WithLabelValues("geocode").Inc()
			metrics.GeocodeLookups.WithLabelValues("hit").Inc()
			return string(data)
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	if s.geocoder == nil {
		return UnknownLocation
	}

	name, err := s.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		slog.Warn("reverse geocode failed", "error", err,
			"lat", coords.Latitude, "lon", coords.Longitude)
		metrics.GeocodeLookups.WithLabelValues("fallback").Inc()
		return UnknownLocation
	}
	if name == "" {
		name = UnknownLocation
	}
	if name == UnknownLocation {
		metrics.GeocodeLookups.WithLabelValues("fallback").Inc()
	} else {
		metrics.GeocodeLookups.WithLabelValues("resolved").Inc()
	}

	if s.cache != nil && name != UnknownLocation {
		_ = s.cache.Set(ctx, cacheKey, []byte(name), s.geocodeTTL)
	}
	return name
}

// FormatCoordinates renders a sample as a degree string with hemisphere
// suffixes, six decimal places.
func (s *LocationService) FormatCoordinates(coords domain.Coordinates) string {
	return geospatial.Format(coords)
}

// ValidCoordinates reports whether the sample is inside WGS 84 ranges.
func (s *LocationService) ValidCoordinates(coords domain.Coordinates) bool {
	return geospatial.Valid(coords)
}

// SaveLocation overwrites the single saved user location.
func (s *LocationService) SaveLocation(coords domain.Coordinates) error {
	if !geospatial.Valid(coords) {
		return fmt.Errorf("coordinates out of range: %s", geospatial.Format(coords))
	}
	return s.store.Save(coords)
}

// SavedLocation loads the saved location; nil means none saved (or the
// stored data was malformed).
func (s *LocationService) SavedLocation() *domain.Coordinates {
	coords, err := s.store.Load()
	if err != nil {
		slog.Warn("saved location load failed", "error", err)
		return nil
	}
	return coords
}

// ClearSavedLocation erases the saved location.
func (s *LocationService) ClearSavedLocation() error {
	return s.store.Clear()
}

// mergeOptions overlays caller options on the given defaults field-by-field.
func mergeOptions(opts *domain.PositionOptions, defaults domain.PositionOptions) domain.PositionOptions {
	if opts == nil {
		return defaults
	}
	merged := *opts
	if merged.Timeout <= 0 {
		merged.Timeout = defaults.Timeout
	}
	if merged.MaximumAge <= 0 {
		merged.MaximumAge = defaults.MaximumAge
	}
	return merged
}

// asLocationError coerces sensor failures into the structured taxonomy so
// callers always see a {code, message} pair.
func asLocationError(err error) *domain.LocationError {
	if lerr, ok := err.(*domain.LocationError); ok {
		return lerr
	}
	return &domain.LocationError{Code: -1, Message: locationFallbackMessage}
}

const locationFallbackMessage = "An unknown error occurred while getting your location."
