package ports

import (
	"context"
	"errors"
	"image"

	"github.com/florapix/devicehub/internal/core/domain"
)

// ErrShareAborted is returned by a ShareSheet when the user backs out of
// the share flow. Callers treat it as "did not share", not as a failure.
var ErrShareAborted = errors.New("share aborted by user")

// CameraStream is a live video stream held open by a CameraDevice.
type CameraStream interface {
	// Facing reports which way the streaming camera points.
	Facing() domain.FacingMode

	// AwaitFrame blocks until the first frame and its intrinsic dimensions
	// are known, then returns that frame. The stream stays live afterwards.
	AwaitFrame(ctx context.Context) (image.Image, error)

	// Close stops every track on the stream. Safe to call more than once.
	Close() error
}

// CameraDevice mediates access to the device cameras.
type CameraDevice interface {
	// Available reports whether the platform exposes a camera at all.
	Available() bool

	// Open acquires a live stream. Implementations return an error for
	// permission denial or hardware failure; the service layer degrades
	// that to an absent stream.
	Open(ctx context.Context, opts domain.CaptureOptions) (CameraStream, error)

	// Enumerate lists attached video-input devices.
	Enumerate(ctx context.Context) ([]domain.CameraInfo, error)
}

// GalleryPicker opens the platform file chooser scoped to images.
// A nil file with a nil error means the user cancelled.
type GalleryPicker interface {
	Pick(ctx context.Context) (*domain.MediaFile, error)
}

// PositionSensor is the platform location source.
type PositionSensor interface {
	// Available reports whether the platform exposes a location sensor.
	Available() bool

	// Current resolves one position fix. Failures are *domain.LocationError
	// values carrying the platform code taxonomy.
	Current(ctx context.Context, opts domain.PositionOptions) (domain.Coordinates, error)

	// Watch delivers continuous fixes to onFix and failures to onError
	// (which may be nil). An error does not cancel the watch. The returned
	// stop function ends delivery and releases sensor resources.
	Watch(opts domain.PositionOptions, onFix func(domain.Coordinates), onError func(*domain.LocationError)) (stop func(), err error)
}

// Environment exposes raw signals about the running context used by the
// standalone/iOS/Android probes and the worker registration guards.
type Environment interface {
	DisplayMode() string   // "standalone" when launched from the home screen
	AppleStandalone() bool // the iOS-only navigator.standalone flag
	Referrer() string
	UserAgent() string
	SecureContext() bool
	Embedded() bool // running inside a nested frame
	Hostname() string
	Online() bool
	// Connection returns quality hints; ok is false when the platform
	// exposes none.
	Connection() (effectiveType string, downlinkMbps float64, rttMillis int, ok bool)
}

// WorkerRegistration is a registered background worker.
type WorkerRegistration interface {
	Scope() string
	// Update asks the platform to check for a newer worker script.
	Update(ctx context.Context) error
	// SubscribePush negotiates a push subscription with the given raw
	// application server key. userVisibleOnly is always requested.
	SubscribePush(ctx context.Context, applicationServerKey []byte, userVisibleOnly bool) (*domain.PushSubscription, error)
	// RegisterSync registers a background sync tag.
	RegisterSync(ctx context.Context, tag string) error
}

// WorkerHost registers background workers.
type WorkerHost interface {
	Supported() bool
	Register(ctx context.Context, script, scope string) (WorkerRegistration, error)
}

// InstallPrompt is the platform's deferred "can install right now" handle.
type InstallPrompt interface {
	Platforms() []string
	// Show displays the native install affordance and waits for the user's
	// decision, returning the outcome and the chosen platform.
	Show(ctx context.Context) (domain.InstallOutcome, string, error)
}

// NotificationGateway requests notification permission from the user.
type NotificationGateway interface {
	Supported() bool
	RequestPermission(ctx context.Context) (domain.NotificationPermission, error)
}

// StorageManager wraps the platform storage manager.
type StorageManager interface {
	Supported() bool
	Persist(ctx context.Context) (bool, error)
	Estimate(ctx context.Context) (domain.StorageEstimate, error)
}

// ShareSheet wraps the native share affordance.
type ShareSheet interface {
	Supported() bool
	Share(ctx context.Context, payload domain.SharePayload) error
}

// Haptics triggers device vibration.
type Haptics interface {
	Supported() bool
	Vibrate(pattern []int)
}

// WakeLock keeps the screen on until released.
type WakeLock interface {
	Release() error
}

// WakeLocker acquires screen wake locks.
type WakeLocker interface {
	Supported() bool
	Acquire(ctx context.Context) (WakeLock, error)
}
