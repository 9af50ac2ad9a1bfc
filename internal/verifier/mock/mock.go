// Package mock provides a deterministic fake verifier for testing.
//
// Faces are synthetic images whose identity is encoded in their dimensions, so
// they survive the JPEG round trip through the store unchanged.
package mock

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/kozaktomas/face-registry/internal/verifier"
)

const (
	baseSize         = 16
	defaultThreshold = 0.68
)

// MockVerifier is a fake verifier.Verifier with per-face distances, errors and delays.
type MockVerifier struct {
	mu        sync.RWMutex
	names     map[image.Point]string
	distances map[[2]string]float64
	noFace    map[string]bool
	errs      map[string]error
	delays    map[string]time.Duration

	// DefaultDistance is used for pairs without an explicit distance.
	DefaultDistance float64
	// Threshold decides Verified.
	Threshold float64
	// IgnoreContext makes delays uninterruptible, like a backend that never checks ctx.
	IgnoreContext bool
	// DetectError is returned by every DetectAnyFace call when set.
	DetectError error

	verifyCalls atomic.Int64
	detectCalls atomic.Int64
}

var _ verifier.Verifier = (*MockVerifier)(nil)

// NewMockVerifier creates a new mock verifier
func NewMockVerifier() *MockVerifier {
	return &MockVerifier{
		names:           make(map[image.Point]string),
		distances:       make(map[[2]string]float64),
		noFace:          make(map[string]bool),
		errs:            make(map[string]error),
		delays:          make(map[string]time.Duration),
		DefaultDistance: 1.0,
		Threshold:       defaultThreshold,
	}
}

// Face returns the synthetic image for name, creating it on first use.
func (m *MockVerifier) Face(name string) *imagecodec.Image {
	m.mu.Lock()
	size, ok := m.sizeOf(name)
	if !ok {
		size = image.Pt(baseSize+len(m.names), baseSize)
		m.names[size] = name
	}
	m.mu.Unlock()

	src := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			src.Set(x, y, color.Gray{Y: uint8(x * 8)})
		}
	}
	img, err := imagecodec.FromImage(src, "png")
	if err != nil {
		panic(fmt.Sprintf("mock: building face %q: %v", name, err))
	}
	return img
}

func (m *MockVerifier) sizeOf(name string) (image.Point, bool) {
	for size, n := range m.names {
		if n == name {
			return size, true
		}
	}
	return image.Point{}, false
}

// SetDistance sets the distance between probe and reference, in either order.
func (m *MockVerifier) SetDistance(a, b string, d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distances[[2]string{a, b}] = d
	m.distances[[2]string{b, a}] = d
}

// SetNoFace marks a face as undetectable.
func (m *MockVerifier) SetNoFace(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noFace[name] = true
}

// SetError makes Verify fail whenever name takes part in the comparison.
func (m *MockVerifier) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[name] = err
}

// SetDelay makes Verify take d whenever name takes part in the comparison.
func (m *MockVerifier) SetDelay(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[name] = d
}

// VerifyCalls returns the number of Verify calls so far.
func (m *MockVerifier) VerifyCalls() int { return int(m.verifyCalls.Load()) }

// DetectCalls returns the number of DetectAnyFace calls so far.
func (m *MockVerifier) DetectCalls() int { return int(m.detectCalls.Load()) }

// nameOf resolves an image back to its face name; unknown images get an empty name.
func (m *MockVerifier) nameOf(img *imagecodec.Image) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[image.Pt(img.Width(), img.Height())]
}

func (m *MockVerifier) DetectAnyFace(ctx context.Context, img *imagecodec.Image) (bool, error) {
	m.detectCalls.Add(1)
	if m.DetectError != nil {
		return false, m.DetectError
	}
	name := m.nameOf(img)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.noFace[name], nil
}

func (m *MockVerifier) Verify(ctx context.Context, a, b *imagecodec.Image) (verifier.Verification, error) {
	m.verifyCalls.Add(1)
	nameA, nameB := m.nameOf(a), m.nameOf(b)

	m.mu.RLock()
	delay := max(m.delays[nameA], m.delays[nameB])
	err := m.errs[nameA]
	if err == nil {
		err = m.errs[nameB]
	}
	noFace := m.noFace[nameA] || m.noFace[nameB]
	d, ok := m.distances[[2]string{nameA, nameB}]
	m.mu.RUnlock()

	if delay > 0 {
		if m.IgnoreContext {
			time.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return verifier.Verification{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return verifier.Verification{}, err
	}
	if noFace {
		return verifier.Verification{}, verifier.ErrNoFace
	}
	if !ok {
		d = m.DefaultDistance
		if nameA != "" && nameA == nameB {
			d = 0
		}
	}

	return verifier.Verification{
		Distance:  d,
		Verified:  d <= m.Threshold,
		Model:     "mock",
		Metric:    verifier.MetricCosine,
		Threshold: m.Threshold,
	}, nil
}
