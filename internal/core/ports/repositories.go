package ports

import (
	"context"

	"github.com/florapix/devicehub/internal/core/domain"
)

// LocationStore persists the single saved user location plus the
// "install prompt seen" flag. Load treats missing or malformed data as
// absent, never as an error.
type LocationStore interface {
	Save(coords domain.Coordinates) error
	Load() (*domain.Coordinates, error)
	Clear() error

	SetInstallPromptSeen(seen bool) error
	InstallPromptSeen() bool
}

// FixRepository stores the position-fix history written by the tracker.
type FixRepository interface {
	Insert(ctx context.Context, fix *domain.PositionFix) error
	Latest(ctx context.Context, deviceID string, limit int) ([]domain.PositionFix, error)
	List(ctx context.Context, deviceID string, offset, limit int) ([]domain.PositionFix, int, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes position fixes to a message broker.
type EventPublisher interface {
	PublishFix(ctx context.Context, fix *domain.PositionFix) error
}

// Geocoder resolves coordinates into place details. An empty name with a
// nil error means the provider had no usable address fields.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
