// Package imagecodec turns caller-supplied image payloads into the canonical
// in-memory representation used for storage and face verification.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kozaktomas/face-registry/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned for payloads that are not valid transport encoding or not a decodable image.
var ErrDecode = errors.New("image decode failed")

// maxPixels guards against decompression bombs (about 50 megapixels).
const maxPixels = 50_000_000

// Image is a decoded, canonicalized still image: opaque 8-bit RGB pixels that fit
// within constants.MaxImageSize, plus the JPEG encoding of those pixels.
type Image struct {
	pixels *image.RGBA
	jpeg   []byte
	format string
}

// Pixels returns the canonical pixel buffer.
func (i *Image) Pixels() image.Image { return i.pixels }

// JPEG returns the canonical JPEG encoding. Callers must not modify it.
func (i *Image) JPEG() []byte { return i.jpeg }

// Width returns the canonical width in pixels.
func (i *Image) Width() int { return i.pixels.Bounds().Dx() }

// Height returns the canonical height in pixels.
func (i *Image) Height() int { return i.pixels.Bounds().Dy() }

// Format returns the format name of the source payload (jpeg, png, gif, bmp, tiff, webp).
func (i *Image) Format() string { return i.format }

// DecodeTransport decodes a base64 payload, optionally prefixed with a data URI
// header such as "data:image/jpeg;base64,".
func DecodeTransport(payload string) (*Image, error) {
	encoded, err := stripTransportHeader(strings.TrimSpace(payload))
	if err != nil {
		return nil, err
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > constants.MaxTransportSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrDecode, constants.MaxTransportSize)
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %w", ErrDecode, err)
	}
	return Decode(data)
}

// stripTransportHeader removes a data URI prefix if present.
func stripTransportHeader(payload string) (string, error) {
	if !strings.HasPrefix(payload, "data:") {
		return payload, nil
	}
	_, encoded, found := strings.Cut(payload, ",")
	if !found {
		return "", fmt.Errorf("%w: malformed data URI", ErrDecode)
	}
	return encoded, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// Decode decodes raw image bytes and canonicalizes them.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecode)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrDecode, mime.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return FromImage(src, format)
}

// FromImage canonicalizes an already decoded image.
func FromImage(src image.Image, format string) (*Image, error) {
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	width, height := fitWithin(bounds.Dx(), bounds.Dy(), constants.MaxImageSize)

	// Alpha is composited over white so the buffer is fully opaque RGB.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode canonical image: %w", err)
	}

	return &Image{pixels: dst, jpeg: buf.Bytes(), format: format}, nil
}

// fitWithin scales width and height down to fit maxSize, keeping aspect ratio.
func fitWithin(width, height, maxSize int) (int, int) {
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		return maxSize, max(1, int(float64(height)*float64(maxSize)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxSize)/float64(height))), maxSize
}
