package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestBlurDataURL(t *testing.T) {
	dataURL, err := BlurDataURL(encodeTestImage(t, 400, 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("unexpected prefix: %q", dataURL[:32])
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	placeholder, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a decodable jpeg: %v", err)
	}
	bounds := placeholder.Bounds()
	if bounds.Dx() != 8 || bounds.Dy() != 6 {
		t.Fatalf("expected 8x6 placeholder, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestBlurDataURL_TinySource(t *testing.T) {
	dataURL, err := BlurDataURL(encodeTestImage(t, 10, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/jpeg;base64,"))
	placeholder, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a decodable jpeg: %v", err)
	}
	if placeholder.Bounds().Dx() != 1 || placeholder.Bounds().Dy() != 1 {
		t.Fatalf("expected 1x1 placeholder, got %v", placeholder.Bounds())
	}
}

func TestBlurDataURL_RejectsGarbage(t *testing.T) {
	if _, err := BlurDataURL([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}
