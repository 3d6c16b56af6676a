package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/pkg/imaging"
)

// Capture waits at most this long for a stream's first frame. The platform
// has no such guard; a dead camera would otherwise hang the caller forever.
const defaultCaptureTimeout = 10 * time.Second

// Resize defaults for gallery/capture post-processing.
const (
	defaultResizeMaxWidth = 1200
	defaultResizeQuality  = 0.8
)

// ErrNoFrame is returned when a stream never reports its first frame
// within the capture deadline.
var ErrNoFrame = errors.New("stream produced no frame before deadline")

// CameraService mediates access to the device camera and produces still
// images suitable for identification upload.
type CameraService struct {
	device ports.CameraDevice
	picker ports.GalleryPicker
}

// NewCameraService creates a new CameraService.
func NewCameraService(device ports.CameraDevice, picker ports.GalleryPicker) *CameraService {
	return &CameraService{device: device, picker: picker}
}

// Available reports whether the platform exposes a camera at all.
func (s *CameraService) Available() bool {
	return s.device != nil && s.device.Available()
}

// AcquireStream requests a live video stream. Permission denial and
// capability absence both degrade to a nil stream; the reason is logged,
// never returned.
func (s *CameraService) AcquireStream(ctx context.Context, opts domain.CaptureOptions) ports.CameraStream {
	if !s.Available() {
		slog.Error("camera not available on this device")
		return nil
	}

	stream, err := s.device.Open(ctx, opts.WithDefaults())
	if err != nil {
		slog.Error("error accessing camera", "error", err)
		return nil
	}
	return stream
}

// CapturePhoto waits for the stream's first frame, draws it into a pixel
// buffer at its intrinsic size, and encodes it as a quality-90 JPEG data
// URL. The stream stays live; releasing it is the caller's separate call.
// When ctx carries no deadline a 10 s one is applied.
func (s *CameraService) CapturePhoto(ctx context.Context, stream ports.CameraStream) (string, error) {
	if stream == nil {
		return "", errors.New("no stream")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCaptureTimeout)
		defer cancel()
	}

	frame, err := stream.AwaitFrame(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrNoFrame
		}
		return "", err
	}

	raw, err := imaging.EncodeJPEG(frame, imaging.CaptureQuality)
	if err != nil {
		return "", err
	}
	return imaging.DataURL("image/jpeg", raw), nil
}

// ReleaseStream stops every track on the stream. Safe on nil and on an
// already-stopped stream.
func (s *CameraService) ReleaseStream(stream ports.CameraStream) {
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		slog.Debug("stream close", "error", err)
	}
}

// SwitchFacing releases the current stream and acquires a new one pointed
// the other way. Returns nil when re-acquisition fails.
func (s *CameraService) SwitchFacing(ctx context.Context, stream ports.CameraStream, current domain.FacingMode) ports.CameraStream {
	s.ReleaseStream(stream)
	return s.AcquireStream(ctx, domain.CaptureOptions{Facing: current.Opposite()})
}

// SelectFromGallery opens the platform file chooser scoped to images.
// A nil file means the user cancelled (or the caller's deadline expired —
// the chooser has no cancel event of its own).
func (s *CameraService) SelectFromGallery(ctx context.Context) (*domain.MediaFile, error) {
	if s.picker == nil {
		return nil, nil
	}
	file, err := s.picker.Pick(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

// FileToDataURL re-encodes a selected file as a base64 data URL. Unlike
// the capability wrappers this rejects on bad input: an unreadable file
// genuinely cannot be processed.
func (s *CameraService) FileToDataURL(file *domain.MediaFile) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", errors.New("empty file")
	}
	mime := file.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return imaging.DataURL(mime, file.Data), nil
}

// ResizeImage downsamples a data-URL image proportionally when its width
// exceeds maxWidth, re-encoding as JPEG at the given quality (0-1). It
// never upsamples: a source at or under maxWidth comes back byte-for-byte
// unchanged, as does input the pixel pipeline cannot process.
func (s *CameraService) ResizeImage(imageDataURL string, maxWidth int, quality float64) string {
	if maxWidth <= 0 {
		maxWidth = defaultResizeMaxWidth
	}
	if quality <= 0 || quality > 1 {
		quality = defaultResizeQuality
	}

	_, raw, err := imaging.ParseDataURL(imageDataURL)
	if err != nil {
		slog.Warn("resize: not a decodable data URL", "error", err)
		return imageDataURL
	}

	width, height, err := imaging.Dimensions(raw)
	if err != nil {
		slog.Warn("resize: undecodable image", "error", err)
		return imageDataURL
	}
	if width <= maxWidth {
		return imageDataURL
	}

	img, err := imaging.Decode(raw)
	if err != nil {
		slog.Warn("resize: decode failed", "error", err)
		return imageDataURL
	}

	newHeight := height * maxWidth / width
	scaled := imaging.Scale(img, maxWidth, newHeight)

	out, err := imaging.EncodeJPEG(scaled, int(quality*100))
	if err != nil {
		slog.Warn("resize: encode failed", "error", err)
		return imageDataURL
	}
	return imaging.DataURL("image/jpeg", out)
}

// ImageDimensions resolves the natural pixel size of a data-URL image,
// rejecting input that cannot be decoded.
func (s *CameraService) ImageDimensions(imageDataURL string) (width, height int, err error) {
	_, raw, err := imaging.ParseDataURL(imageDataURL)
	if err != nil {
		return 0, 0, err
	}
	return imaging.Dimensions(raw)
}

// AvailableCameras lists attached video-input devices; enumeration
// failures degrade to an empty list.
func (s *CameraService) AvailableCameras(ctx context.Context) []domain.CameraInfo {
	if !s.Available() {
		return nil
	}
	cameras, err := s.device.Enumerate(ctx)
	if err != nil {
		slog.Error("error enumerating cameras", "error", err)
		return nil
	}
	return cameras
}

// HasMultipleCameras reports whether more than one video input is attached.
func (s *CameraService) HasMultipleCameras(ctx context.Context) bool {
	return len(s.AvailableCameras(ctx)) > 1
}
