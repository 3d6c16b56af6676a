package imaging

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	return img
}

func TestDataURLRoundTrip(t *testing.T) {
	raw, err := EncodeJPEG(testImage(8, 8), 90)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	url := DataURL("image/jpeg", raw)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix: %s", url[:30])
	}

	mime, data, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", mime)
	}
	if len(data) != len(raw) {
		t.Errorf("payload length changed: %d vs %d", len(data), len(raw))
	}
}

func TestParseDataURL_Malformed(t *testing.T) {
	for _, s := range []string{"", "not a url", "data:image/png", "data:image/png;base64,!!!"} {
		if _, _, err := ParseDataURL(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDimensions(t *testing.T) {
	raw, err := EncodeJPEG(testImage(120, 80), 90)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	w, h, err := Dimensions(raw)
	if err != nil {
		t.Fatalf("dimensions: %v", err)
	}
	if w != 120 || h != 80 {
		t.Errorf("expected 120x80, got %dx%d", w, h)
	}
}

func TestDimensions_Undecodable(t *testing.T) {
	if _, _, err := Dimensions([]byte("plain text")); err == nil {
		t.Error("expected error for undecodable input")
	}
}

func TestScale(t *testing.T) {
	img := Scale(testImage(400, 300), 200, 150)
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("expected 200x150, got %dx%d", b.Dx(), b.Dy())
	}
}
