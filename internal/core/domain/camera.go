package domain

// FacingMode selects which side of the device the camera points.
type FacingMode string

const (
	FacingUser        FacingMode = "user"        // front camera
	FacingEnvironment FacingMode = "environment" // rear camera
)

// Opposite returns the other facing mode.
func (f FacingMode) Opposite() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// CaptureOptions describe a requested video stream. Zero fields fall back
// to the defaults: rear camera, 1920x1080, 16:9. Audio is never requested.
type CaptureOptions struct {
	Facing      FacingMode `json:"facing"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	AspectRatio float64    `json:"aspect_ratio"`
}

// WithDefaults fills unset fields with the standard capture defaults.
func (o CaptureOptions) WithDefaults() CaptureOptions {
	if o.Facing == "" {
		o.Facing = FacingEnvironment
	}
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.AspectRatio <= 0 {
		o.AspectRatio = 16.0 / 9.0
	}
	return o
}

// CameraInfo describes one attached video-input device.
type CameraInfo struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Facing FacingMode `json:"facing,omitempty"`
}

// MediaFile is a file chosen from the device gallery, read fully into memory.
type MediaFile struct {
	Name string
	MIME string
	Data []byte
}
