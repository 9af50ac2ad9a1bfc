// Package verifier defines the face-recognition capability the registry delegates to,
// and a registry of concrete backends.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// ErrNoFace is returned by Verify when one of the images contains no detectable face.
var ErrNoFace = errors.New("no face detected")

// ErrUnknownBackend is returned by New for names nobody registered.
var ErrUnknownBackend = errors.New("unknown verifier backend")

// Verifier compares faces. Implementations must be safe for concurrent use.
type Verifier interface {
	// DetectAnyFace reports whether img contains at least one face.
	DetectAnyFace(ctx context.Context, img *imagecodec.Image) (bool, error)
	// Verify compares the most prominent face of a and b.
	Verify(ctx context.Context, a, b *imagecodec.Image) (Verification, error)
}

// Verification is the outcome of comparing two faces. Lower Distance means more similar.
type Verification struct {
	Distance  float64
	Verified  bool
	Model     string
	Metric    string
	Threshold float64
}

// Options carries everything a backend factory may need.
type Options struct {
	Config *config.Config
	Logger logrus.FieldLogger
}

// Factory builds a backend.
type Factory func(opts Options) (Verifier, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{}
)

// Register makes a backend available under name. Backends call it from init.
func Register(name string, factory Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if factory == nil {
		panic("verifier: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("verifier: Register called twice for backend " + name)
	}
	backends[name] = factory
}

// Backends returns the names of all registered backends, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the backend registered under name.
func New(name string, opts Options) (Verifier, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	if opts.Config == nil {
		opts.Config = config.Load()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return factory(opts)
}

// Supported distance metrics.
const (
	MetricCosine      = "cosine"
	MetricEuclidean   = "euclidean"
	MetricEuclideanL2 = "euclidean_l2"
)

// Distance computes the distance between two embeddings under metric.
func Distance(metric string, a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	switch metric {
	case MetricCosine:
		return CosineDistance(a, b), nil
	case MetricEuclidean:
		return floats.Distance(a, b, 2), nil
	case MetricEuclideanL2:
		return floats.Distance(l2Normalize(a), l2Normalize(b), 2), nil
	default:
		return 0, fmt.Errorf("unsupported distance metric %q", metric)
	}
}

// CosineDistance returns 1 - cosine similarity, between 0 (identical) and 2 (opposite).
func CosineDistance(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := floats.Dot(a, b) / (normA * normB)
	// Clamp to [-1, 1] to handle floating point errors
	similarity = math.Max(-1, math.Min(1, similarity))

	return 1 - similarity
}

func l2Normalize(v []float64) []float64 {
	out := slices.Clone(v)
	if n := floats.Norm(out, 2); n > 0 {
		floats.Scale(1/n, out)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// verification builds the result for a distance, resolving the threshold from the embedded table.
func verification(cfg *config.Config, model, metric string, distance float64) Verification {
	threshold, ok := cfg.VerificationThreshold(model, metric)
	return Verification{
		Distance:  distance,
		Verified:  ok && distance <= threshold,
		Model:     model,
		Metric:    metric,
		Threshold: threshold,
	}
}
