package domain

import "time"

// Coordinates is a single sample from the device location sensor (WGS 84).
// Optional sensor readings are pointers so that a missing value survives a
// JSON round-trip as absent rather than zero.
type Coordinates struct {
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Accuracy         *float64 `json:"accuracy,omitempty"`
	Altitude         *float64 `json:"altitude,omitempty"`
	AltitudeAccuracy *float64 `json:"altitude_accuracy,omitempty"`
	Heading          *float64 `json:"heading,omitempty"`
	Speed            *float64 `json:"speed,omitempty"`
}

// Location error codes mirror the platform sensor taxonomy. Code 0 is our
// own extension for "no sensor at all".
const (
	LocErrUnsupported      = 0
	LocErrPermissionDenied = 1
	LocErrUnavailable      = 2
	LocErrTimeout          = 3
)

// LocationError is the structured failure a position request resolves with.
type LocationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *LocationError) Error() string {
	return e.Message
}

// NewLocationError builds a LocationError with the fixed message for a code.
func NewLocationError(code int) *LocationError {
	return &LocationError{Code: code, Message: locationErrorMessage(code)}
}

func locationErrorMessage(code int) string {
	switch code {
	case LocErrUnsupported:
		return "Geolocation is not supported by this device"
	case LocErrPermissionDenied:
		return "Permission denied. Please allow location access to get frost alerts."
	case LocErrUnavailable:
		return "Position unavailable. Unable to determine your location."
	case LocErrTimeout:
		return "Timeout. Location request took too long."
	default:
		return "An unknown error occurred while getting your location."
	}
}

// PositionOptions tunes a one-shot or continuous position request.
// Zero durations are filled with the request-kind defaults by the service.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultPositionOptions are the one-shot request defaults: high accuracy,
// 10 s timeout, tolerate a fix cached up to 5 minutes ago.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   5 * time.Minute,
	}
}

// DefaultWatchOptions are the continuous-watch defaults; a tighter 1 minute
// cached-fix tolerance keeps tracking responsive.
func DefaultWatchOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   1 * time.Minute,
	}
}

// PositionFix is a tracked position sample with capture metadata, published
// to the broker and written to the fix history.
type PositionFix struct {
	Time     time.Time `json:"time"`
	DeviceID string    `json:"device_id"`
	Source   string    `json:"source,omitempty"` // sensor driver: "nmea", "sim"
	Coordinates
}
