// Package simdev provides simulated platform devices. It stands in for
// real hardware in development and test environments: the camera renders
// synthetic frames and the position sensor walks around a base point.
package simdev

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
)

// Camera implements ports.CameraDevice with synthetic frames.
type Camera struct {
	warmup time.Duration
}

// NewCamera creates a simulated camera. warmup delays Open to mimic
// real sensor startup.
func NewCamera(warmup time.Duration) *Camera {
	return &Camera{warmup: warmup}
}

func (c *Camera) Available() bool { return true }

func (c *Camera) Open(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error) {
	opts = opts.WithDefaults()
	if c.warmup > 0 {
		select {
		case <-time.After(c.warmup):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &stream{facing: opts.Facing, width: opts.Width, height: opts.Height}, nil
}

func (c *Camera) Enumerate(ctx context.Context) ([]domain.CameraInfo, error) {
	return []domain.CameraInfo{
		{ID: "sim-rear", Label: "Simulated rear camera", Facing: domain.FacingEnvironment},
		{ID: "sim-front", Label: "Simulated front camera", Facing: domain.FacingUser},
	}, nil
}

type stream struct {
	facing domain.FacingMode
	width  int
	height int

	mu     sync.Mutex
	closed bool
}

func (s *stream) Facing() domain.FacingMode { return s.facing }

func (s *stream) AwaitFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("stream closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return renderFrame(s.width, s.height), nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// renderFrame draws a two-axis gradient so captures are visually
// distinct per resolution.
func renderFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 0x80,
				A: 0xff,
			})
		}
	}
	return img
}

// Gallery implements ports.GalleryPicker over a fixed directory. Pick
// returns the first image file found, or nil when the directory holds
// none, which reads as the user cancelling.
type Gallery struct {
	Dir string
}

func (g *Gallery) Pick(ctx context.Context) (*domain.MediaFile, error) {
	entries, err := os.ReadDir(g.Dir)
	if err != nil {
		return nil, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mime := mimeForName(e.Name())
		if mime == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(g.Dir, e.Name()))
		if err != nil {
			return nil, err
		}
		return &domain.MediaFile{Name: e.Name(), MIME: mime, Data: data}, nil
	}
	return nil, nil
}

func mimeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}
