package usecases_test

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/core/usecases"
	"github.com/florapix/devicehub/internal/pkg/imaging"
)

// --- Mock camera device and stream ---

type mockStream struct {
	facing   domain.FacingMode
	frame    image.Image
	delay    time.Duration
	closed   int
}

func (m *mockStream) Facing() domain.FacingMode { return m.facing }

func (m *mockStream) AwaitFrame(ctx context.Context) (image.Image, error) {
	if m.frame == nil {
		// A dead camera: never reports a frame.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.frame, nil
}

func (m *mockStream) Close() error { m.closed++; return nil }

type mockCamera struct {
	available bool
	openFn    func(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error)
	cameras   []domain.CameraInfo
	enumErr   error
}

func (m *mockCamera) Available() bool { return m.available }

func (m *mockCamera) Open(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error) {
	if m.openFn != nil {
		return m.openFn(ctx, opts)
	}
	return &mockStream{facing: opts.Facing}, nil
}

func (m *mockCamera) Enumerate(ctx context.Context) ([]domain.CameraInfo, error) {
	return m.cameras, m.enumErr
}

type mockPicker struct {
	file *domain.MediaFile
	err  error
}

func (m *mockPicker) Pick(ctx context.Context) (*domain.MediaFile, error) {
	return m.file, m.err
}

func solidFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 60, A: 255})
		}
	}
	return img
}

func jpegDataURL(t *testing.T, w, h int) string {
	t.Helper()
	raw, err := imaging.EncodeJPEG(solidFrame(w, h), 90)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return imaging.DataURL("image/jpeg", raw)
}

// --- Tests ---

func TestAcquireStream_UnavailableCamera(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{available: false}, nil)
	if stream := svc.AcquireStream(context.Background(), domain.CaptureOptions{}); stream != nil {
		t.Error("expected nil stream on a platform without a camera")
	}
	if svc.Available() {
		t.Error("expected Available() == false")
	}
}

func TestAcquireStream_Defaults(t *testing.T) {
	var got domain.CaptureOptions
	cam := &mockCamera{
		available: true,
		openFn: func(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error) {
			got = opts
			return &mockStream{facing: opts.Facing}, nil
		},
	}
	svc := usecases.NewCameraService(cam, nil)

	stream := svc.AcquireStream(context.Background(), domain.CaptureOptions{})
	if stream == nil {
		t.Fatal("expected stream")
	}
	if got.Facing != domain.FacingEnvironment {
		t.Errorf("expected environment facing default, got %s", got.Facing)
	}
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("expected 1920x1080 defaults, got %dx%d", got.Width, got.Height)
	}
}

func TestAcquireStream_PermissionDeniedDegradesToNil(t *testing.T) {
	cam := &mockCamera{
		available: true,
		openFn: func(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error) {
			return nil, context.Canceled
		},
	}
	svc := usecases.NewCameraService(cam, nil)
	if stream := svc.AcquireStream(context.Background(), domain.CaptureOptions{}); stream != nil {
		t.Error("expected nil stream when the platform refuses")
	}
}

func TestCapturePhoto(t *testing.T) {
	stream := &mockStream{facing: domain.FacingEnvironment, frame: solidFrame(64, 48)}
	svc := usecases.NewCameraService(&mockCamera{available: true}, nil)

	dataURL, err := svc.CapturePhoto(context.Background(), stream)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/jpeg;base64,") {
		t.Fatalf("expected JPEG data URL, got prefix %q", dataURL[:24])
	}

	w, h, err := svc.ImageDimensions(dataURL)
	if err != nil {
		t.Fatalf("dimensions: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("expected frame-sized 64x48 capture, got %dx%d", w, h)
	}
	if stream.closed != 0 {
		t.Error("capture must not stop the stream")
	}
}

func TestCapturePhoto_DeadStreamTimesOut(t *testing.T) {
	stream := &mockStream{frame: nil} // never reports metadata
	svc := usecases.NewCameraService(&mockCamera{available: true}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.CapturePhoto(ctx, stream)
	if err != usecases.ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestReleaseStream_Idempotent(t *testing.T) {
	stream := &mockStream{frame: solidFrame(2, 2)}
	svc := usecases.NewCameraService(&mockCamera{available: true}, nil)

	svc.ReleaseStream(stream)
	svc.ReleaseStream(stream)
	svc.ReleaseStream(nil)
	if stream.closed != 2 {
		t.Errorf("expected 2 close calls, got %d", stream.closed)
	}
}

func TestSwitchFacing(t *testing.T) {
	old := &mockStream{facing: domain.FacingEnvironment, frame: solidFrame(2, 2)}
	cam := &mockCamera{
		available: true,
		openFn: func(ctx context.Context, opts domain.CaptureOptions) (ports.CameraStream, error) {
			return &mockStream{facing: opts.Facing, frame: solidFrame(2, 2)}, nil
		},
	}
	svc := usecases.NewCameraService(cam, nil)

	next := svc.SwitchFacing(context.Background(), old, domain.FacingEnvironment)
	if next == nil {
		t.Fatal("expected new stream")
	}
	if next.Facing() != domain.FacingUser {
		t.Errorf("expected user facing, got %s", next.Facing())
	}
	if old.closed == 0 {
		t.Error("expected old stream released")
	}
}

func TestSelectFromGallery_Cancel(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{available: true}, &mockPicker{file: nil})
	file, err := svc.SelectFromGallery(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file != nil {
		t.Error("expected nil file on cancel")
	}
}

func TestSelectFromGallery_DeadlineMeansCancel(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{available: true},
		&mockPicker{err: context.DeadlineExceeded})
	file, err := svc.SelectFromGallery(context.Background())
	if err != nil {
		t.Fatalf("deadline expiry must not surface as an error, got %v", err)
	}
	if file != nil {
		t.Error("expected nil file")
	}
}

func TestFileToDataURL(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{}, nil)

	url, err := svc.FileToDataURL(&domain.MediaFile{Name: "leaf.png", MIME: "image/png", Data: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("unexpected prefix: %q", url)
	}

	if _, err := svc.FileToDataURL(nil); err == nil {
		t.Error("expected error for nil file")
	}
	if _, err := svc.FileToDataURL(&domain.MediaFile{}); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestResizeImage_Downscales(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{}, nil)
	src := jpegDataURL(t, 400, 300)

	out := svc.ResizeImage(src, 200, 0.8)
	w, h, err := svc.ImageDimensions(out)
	if err != nil {
		t.Fatalf("dimensions: %v", err)
	}
	if w != 200 {
		t.Errorf("expected width 200, got %d", w)
	}
	if h != 150 {
		t.Errorf("expected proportional height 150, got %d", h)
	}
}

func TestResizeImage_NeverUpsamples(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{}, nil)
	src := jpegDataURL(t, 100, 80)

	if out := svc.ResizeImage(src, 1200, 0.8); out != src {
		t.Error("expected byte-for-byte original for a narrow source")
	}
}

func TestResizeImage_UndecodableReturnsInput(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{}, nil)
	if out := svc.ResizeImage("not an image", 1200, 0.8); out != "not an image" {
		t.Error("expected input returned unchanged")
	}
}

func TestImageDimensions_Rejects(t *testing.T) {
	svc := usecases.NewCameraService(&mockCamera{}, nil)
	if _, _, err := svc.ImageDimensions("data:image/png;base64,AAAA"); err == nil {
		t.Error("expected error for undecodable image")
	}
}

func TestAvailableCameras(t *testing.T) {
	cam := &mockCamera{
		available: true,
		cameras: []domain.CameraInfo{
			{ID: "0", Label: "Back", Facing: domain.FacingEnvironment},
			{ID: "1", Label: "Front", Facing: domain.FacingUser},
		},
	}
	svc := usecases.NewCameraService(cam, nil)

	if got := svc.AvailableCameras(context.Background()); len(got) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(got))
	}
	if !svc.HasMultipleCameras(context.Background()) {
		t.Error("expected multiple cameras")
	}
}

func TestAvailableCameras_ErrorDegradesToEmpty(t *testing.T) {
	cam := &mockCamera{available: true, enumErr: context.Canceled}
	svc := usecases.NewCameraService(cam, nil)

	if got := svc.AvailableCameras(context.Background()); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}
