//go:build dlib

package verifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/sirupsen/logrus"
)

const dlibModel = "Dlib"

func init() {
	Register("dlib", func(opts Options) (Verifier, error) {
		return NewDlibVerifier(opts.Config, opts.Logger)
	})
}

// DlibVerifier runs dlib's ResNet face recognizer in-process via cgo.
type DlibVerifier struct {
	mu  sync.Mutex // the recognizer is not safe for concurrent use
	rec *face.Recognizer
	cfg *config.Config
	log logrus.FieldLogger
}

// NewDlibVerifier loads the dlib models from cfg.Verifier.DlibModels.
func NewDlibVerifier(cfg *config.Config, logger logrus.FieldLogger) (*DlibVerifier, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithField("dir", cfg.Verifier.DlibModels).Debug("initializing face-recognition models")
	rec, err := face.NewRecognizer(cfg.Verifier.DlibModels)
	if err != nil {
		return nil, fmt.Errorf("failed to load recognizer: %w", err)
	}
	return &DlibVerifier{rec: rec, cfg: cfg, log: logger}, nil
}

// Close releases the native recognizer.
func (v *DlibVerifier) Close() {
	v.rec.Close()
}

func (v *DlibVerifier) recognize(ctx context.Context, img *imagecodec.Image) ([]face.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	faces, err := v.rec.Recognize(img.JPEG())
	if err != nil {
		return nil, fmt.Errorf("failed to recognize image: %w", err)
	}
	return faces, nil
}

func (v *DlibVerifier) DetectAnyFace(ctx context.Context, img *imagecodec.Image) (bool, error) {
	faces, err := v.recognize(ctx, img)
	if err != nil {
		return false, err
	}
	return len(faces) > 0, nil
}

func (v *DlibVerifier) Verify(ctx context.Context, a, b *imagecodec.Image) (Verification, error) {
	descA, err := v.primaryDescriptor(ctx, a)
	if err != nil {
		return Verification{}, err
	}
	descB, err := v.primaryDescriptor(ctx, b)
	if err != nil {
		return Verification{}, err
	}

	distance, err := Distance(MetricEuclidean, descA, descB)
	if err != nil {
		return Verification{}, err
	}
	return verification(v.cfg, dlibModel, MetricEuclidean, distance), nil
}

// primaryDescriptor returns the descriptor of the largest face.
func (v *DlibVerifier) primaryDescriptor(ctx context.Context, img *imagecodec.Image) ([]float64, error) {
	faces, err := v.recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if area(f) > area(best) {
			best = f
		}
	}
	return toFloat64(best.Descriptor[:]), nil
}

func area(f face.Face) int {
	return f.Rectangle.Dx() * f.Rectangle.Dy()
}
