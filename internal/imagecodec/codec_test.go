package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeTransport_PlainBase64(t *testing.T) {
	data := encodeJPEG(t, createTestImage(64, 48, color.RGBA{200, 100, 50, 255}))

	img, err := DecodeTransport(base64.StdEncoding.EncodeToString(data))
	if err != nil {
		t.Fatalf("DecodeTransport failed: %v", err)
	}

	if img.Width() != 64 || img.Height() != 48 {
		t.Errorf("expected 64x48, got %dx%d", img.Width(), img.Height())
	}
	if img.Format() != "jpeg" {
		t.Errorf("expected format 'jpeg', got '%s'", img.Format())
	}
	if len(img.JPEG()) == 0 {
		t.Error("expected canonical JPEG bytes")
	}
}

func TestDecodeTransport_DataURIPrefix(t *testing.T) {
	data := encodePNG(t, createTestImage(10, 10, color.Black))

	tests := []struct {
		name    string
		payload string
	}{
		{"png data uri", "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)},
		{"generic data uri", "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)},
		{"surrounding whitespace", "  data:image/png;base64," + base64.StdEncoding.EncodeToString(data) + "\n"},
		{"unpadded base64", base64.RawStdEncoding.EncodeToString(data)},
		{"url-safe base64", base64.URLEncoding.EncodeToString(data)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodeTransport(tc.payload)
			if err != nil {
				t.Fatalf("DecodeTransport failed: %v", err)
			}
			if img.Format() != "png" {
				t.Errorf("expected format 'png', got '%s'", img.Format())
			}
		})
	}
}

func TestDecodeTransport_Errors(t *testing.T) {
	pngData := encodePNG(t, createTestImage(10, 10, color.White))

	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"data uri without comma", "data:image/png;base64"},
		{"data uri with empty body", "data:image/png;base64,"},
		{"invalid base64", "not*base64!!"},
		{"text content", base64.StdEncoding.EncodeToString([]byte("hello, this is definitely not an image"))},
		{"truncated png", base64.StdEncoding.EncodeToString(pngData[:len(pngData)/2])},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodeTransport(tc.payload)
			if err == nil {
				t.Fatalf("expected error, got image %dx%d", img.Width(), img.Height())
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecode_TransparencyCompositedOverWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	// Fully transparent everywhere except one opaque red pixel.
	img.Set(3, 3, color.NRGBA{255, 0, 0, 255})

	decoded, err := Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	r, g, b, a := decoded.Pixels().At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("expected transparent pixel to become opaque white, got (%d,%d,%d,%d)", r>>8, g>>8, b>>8, a>>8)
	}

	r, g, b, _ = decoded.Pixels().At(3, 3).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected opaque pixel to be preserved, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestDecode_DownscalesLargeImages(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 4000, 1000, 1920, 480},
		{"portrait", 1000, 4000, 480, 1920},
		{"square", 2500, 2500, 1920, 1920},
		{"within limit", 1920, 1080, 1920, 1080},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tc.width, tc.height))

			img, err := FromImage(src, "png")
			if err != nil {
				t.Fatalf("FromImage failed: %v", err)
			}
			if img.Width() != tc.wantW || img.Height() != tc.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tc.wantW, tc.wantH, img.Width(), img.Height())
			}
		})
	}
}

func TestDecode_CanonicalJPEGRoundTrip(t *testing.T) {
	original, err := Decode(encodePNG(t, createTestImage(32, 16, color.RGBA{10, 20, 30, 255})))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	again, err := Decode(original.JPEG())
	if err != nil {
		t.Fatalf("Decode of canonical JPEG failed: %v", err)
	}

	if again.Format() != "jpeg" {
		t.Errorf("expected canonical encoding to be jpeg, got '%s'", again.Format())
	}
	if again.Width() != original.Width() || again.Height() != original.Height() {
		t.Errorf("expected %dx%d after round trip, got %dx%d",
			original.Width(), original.Height(), again.Width(), again.Height())
	}
}

func TestFromImage_EmptyBounds(t *testing.T) {
	_, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), "png")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for empty image, got %v", err)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{400, 200, 200, 200, 100},
		{200, 400, 200, 100, 200},
		{10000, 1, 100, 100, 1},
	}

	for _, tc := range tests {
		gotW, gotH := fitWithin(tc.w, tc.h, tc.max)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %dx%d; want %dx%d", tc.w, tc.h, tc.max, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}
