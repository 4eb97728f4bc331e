package imageopt

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func noisy(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x ^ y) * 3), A: alpha})
		}
	}
	return img
}

func TestOptimizeFitsLongestSide(t *testing.T) {
	data := encodePNG(t, noisy(400, 200, 255))
	result, err := New(WithMaxDimension(100)).Optimize("photo.png", "image/png", data)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !result.Optimized {
		t.Fatalf("expected an optimized rendition")
	}
	if result.Width != 100 || result.Height != 50 {
		t.Fatalf("expected 100x50, got %dx%d", result.Width, result.Height)
	}
	if result.ContentType != "image/jpeg" && result.ContentType != "image/png" {
		t.Fatalf("unexpected rendition type %s", result.ContentType)
	}
	stored, _, err := image.DecodeConfig(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decode rendition: %v", err)
	}
	if stored.Width != 100 || stored.Height != 50 {
		t.Fatalf("stored bytes are %dx%d, expected 100x50", stored.Width, stored.Height)
	}
}

func TestOptimizeKeepsSmallerReencodeOnly(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range flat.Pix {
		flat.Pix[i] = 0xff
	}
	data := encodePNG(t, flat)
	result, err := New(WithMaxDimension(100)).Optimize("flat.png", "image/png", data)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if result.Width != 64 || result.Height != 64 {
		t.Fatalf("expected source dimensions, got %dx%d", result.Width, result.Height)
	}
	if result.Optimized && len(result.Data) >= len(data) {
		t.Fatalf("an image inside the box is only replaced by a smaller encoding")
	}
	if !result.Optimized && !bytes.Equal(result.Data, data) {
		t.Fatalf("expected the original bytes")
	}
}

func TestOptimizeKeepsTransparencyAsPNG(t *testing.T) {
	data := encodePNG(t, noisy(400, 400, 128))
	result, err := New(WithMaxDimension(50)).Optimize("logo.png", "", data)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if result.Optimized && result.ContentType != "image/png" {
		t.Fatalf("transparent images must stay png, got %s", result.ContentType)
	}
}

func TestOptimizeFallsBackOnGarbage(t *testing.T) {
	data := []byte("definitely not a png")
	result, err := New().Optimize("broken.png", "image/png", data)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if result.Optimized || !bytes.Equal(result.Data, data) || result.ContentType != "image/png" {
		t.Fatalf("expected original bytes on failure, got %+v", result)
	}
}

func TestOptimizeSkipsNonRaster(t *testing.T) {
	data := []byte("<svg></svg>")
	result, err := New().Optimize("diagram.svg", "", data)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected not image, got %v", err)
	}
	if result.ContentType != "image/svg+xml" || result.Ext != ".svg" {
		t.Fatalf("unexpected original description %+v", result)
	}
}
