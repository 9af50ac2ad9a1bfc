package verifier

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 0},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"scaled", []float64{1, 2, 3}, []float64{2, 4, 6}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("CosineDistance() = %f, want %f", got, tc.expected)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		metric   string
		a, b     []float64
		expected float64
	}{
		{"cosine", MetricCosine, []float64{1, 0}, []float64{0, 1}, 1},
		{"euclidean", MetricEuclidean, []float64{0, 0}, []float64{3, 4}, 5},
		{"euclidean l2 ignores scale", MetricEuclideanL2, []float64{1, 0}, []float64{10, 0}, 0},
		{"euclidean l2 orthogonal", MetricEuclideanL2, []float64{2, 0}, []float64{0, 5}, math.Sqrt2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Distance(tc.metric, tc.a, tc.b)
			if err != nil {
				t.Fatalf("Distance() error: %v", err)
			}
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Distance() = %f, want %f", got, tc.expected)
			}
		})
	}
}

func TestDistance_Errors(t *testing.T) {
	if _, err := Distance(MetricCosine, []float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
	if _, err := Distance(MetricCosine, nil, nil); err == nil {
		t.Error("expected error for empty embeddings")
	}
	if _, err := Distance("manhattan", []float64{1}, []float64{1}); err == nil {
		t.Error("expected error for unsupported metric")
	}
}

func TestL2NormalizeDoesNotModifyInput(t *testing.T) {
	v := []float64{3, 4}
	got := l2Normalize(v)
	if v[0] != 3 || v[1] != 4 {
		t.Errorf("input modified: %v", v)
	}
	if math.Abs(got[0]-0.6) > 1e-9 || math.Abs(got[1]-0.8) > 1e-9 {
		t.Errorf("l2Normalize() = %v, want [0.6 0.8]", got)
	}
}

func TestVerification_UsesThresholdTable(t *testing.T) {
	cfg := config.Load()

	v := verification(cfg, "VGG-Face", MetricCosine, 0.5)
	if !v.Verified || v.Threshold != 0.68 {
		t.Errorf("expected verified with threshold 0.68, got %+v", v)
	}

	v = verification(cfg, "VGG-Face", MetricCosine, 0.68)
	if !v.Verified {
		t.Error("expected distance equal to threshold to verify")
	}

	v = verification(cfg, "VGG-Face", MetricCosine, 0.9)
	if v.Verified {
		t.Error("expected distance above threshold not to verify")
	}

	v = verification(cfg, "unknown", MetricCosine, 0)
	if v.Verified {
		t.Error("expected unknown model never to verify")
	}
}

type stubVerifier struct{}

func (stubVerifier) DetectAnyFace(context.Context, *imagecodec.Image) (bool, error) { return true, nil }
func (stubVerifier) Verify(context.Context, *imagecodec.Image, *imagecodec.Image) (Verification, error) {
	return Verification{}, nil
}

func TestRegistry(t *testing.T) {
	Register("stub-registry-test", func(opts Options) (Verifier, error) {
		if opts.Config == nil || opts.Logger == nil {
			t.Error("expected New to fill in default options")
		}
		return stubVerifier{}, nil
	})

	if !slices.Contains(Backends(), "embedding") {
		t.Errorf("expected embedding backend to be registered, got %v", Backends())
	}

	v, err := New("stub-registry-test", Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := v.(stubVerifier); !ok {
		t.Errorf("expected stubVerifier, got %T", v)
	}

	if _, err := New("does-not-exist", Options{}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	Register("embedding", func(Options) (Verifier, error) { return stubVerifier{}, nil })
}
