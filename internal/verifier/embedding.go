package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	jsoniter "github.com/json-iterator/go"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/sirupsen/logrus"
)

const defaultEmbeddingURL = "http://localhost:8000"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	Register("embedding", func(opts Options) (Verifier, error) {
		return NewEmbeddingVerifier(opts.Config, opts.Logger)
	})
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// EmbeddingVerifier compares faces using embeddings computed by a face-embedding server.
type EmbeddingVerifier struct {
	baseURL string
	model   string
	metric  string
	cfg     *config.Config
	client  *http.Client
	log     logrus.FieldLogger
}

// NewEmbeddingVerifier creates a verifier for the server at cfg.Verifier.EmbeddingURL.
func NewEmbeddingVerifier(cfg *config.Config, logger logrus.FieldLogger) (*EmbeddingVerifier, error) {
	baseURL := cfg.Verifier.EmbeddingURL
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if _, ok := cfg.VerificationThreshold(cfg.Verifier.Model, cfg.Verifier.Metric); !ok {
		return nil, fmt.Errorf("no verification threshold for model %q with metric %q", cfg.Verifier.Model, cfg.Verifier.Metric)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EmbeddingVerifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Verifier.Model,
		metric:  cfg.Verifier.Metric,
		cfg:     cfg,
		client:  &http.Client{},
		log:     logger,
	}, nil
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (v *EmbeddingVerifier) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", mimetype.Detect(imageData).String())
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (v *EmbeddingVerifier) ComputeFaceEmbeddings(ctx context.Context, img *imagecodec.Image) (*FaceResponse, error) {
	body, err := v.postMultipartImage(ctx, "/embed/face", img.JPEG())
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

func (v *EmbeddingVerifier) DetectAnyFace(ctx context.Context, img *imagecodec.Image) (bool, error) {
	resp, err := v.ComputeFaceEmbeddings(ctx, img)
	if err != nil {
		return false, err
	}
	return len(resp.Faces) > 0, nil
}

func (v *EmbeddingVerifier) Verify(ctx context.Context, a, b *imagecodec.Image) (Verification, error) {
	embA, err := v.primaryEmbedding(ctx, a)
	if err != nil {
		return Verification{}, err
	}
	embB, err := v.primaryEmbedding(ctx, b)
	if err != nil {
		return Verification{}, err
	}

	distance, err := Distance(v.metric, embA, embB)
	if err != nil {
		return Verification{}, err
	}
	return verification(v.cfg, v.model, v.metric, distance), nil
}

// primaryEmbedding returns the embedding of the face with the highest detection score.
func (v *EmbeddingVerifier) primaryEmbedding(ctx context.Context, img *imagecodec.Image) ([]float64, error) {
	resp, err := v.ComputeFaceEmbeddings(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(resp.Faces) == 0 {
		return nil, ErrNoFace
	}

	best := resp.Faces[0]
	for _, f := range resp.Faces[1:] {
		if f.DetScore > best.DetScore {
			best = f
		}
	}
	if len(best.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if len(resp.Faces) > 1 {
		v.log.WithFields(logrus.Fields{
			"faces":     len(resp.Faces),
			"det_score": best.DetScore,
		}).Debug("multiple faces detected, using the most confident one")
	}
	return toFloat64(best.Embedding), nil
}
