package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/face-registry/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Store      StoreConfig
	Match      MatchConfig
	Verifier   VerifierConfig
	Log        LogConfig
	Thresholds ThresholdsConfig
}

type StoreConfig struct {
	Dir string // directory holding one <userId>.jpg per registered user
}

type MatchConfig struct {
	Threshold      float64       // maximum distance for a recognition match
	CompareTimeout time.Duration // bound on a single verifier comparison
	Workers        int           // parallel comparisons during a scan
}

type VerifierConfig struct {
	Backend      string // "embedding" or "dlib"
	EmbeddingURL string // defaults to http://localhost:8000
	Model        string // model name used for threshold lookup
	Metric       string // cosine, euclidean or euclidean_l2
	DlibModels   string // directory with the dlib .dat model files
}

type LogConfig struct {
	Level string // logrus level name
	File  string // optional rotating log file, empty = stderr only
}

type ThresholdsConfig struct {
	Models map[string]map[string]float64 `yaml:"models"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var value or the default when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	timeoutSec := envInt("COMPARE_TIMEOUT_SECONDS", int(constants.DefaultCompareTimeout/time.Second))

	return &Config{
		Store: StoreConfig{
			Dir: envString("FACES_DIR", constants.DefaultFacesDir),
		},
		Match: MatchConfig{
			Threshold:      envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			CompareTimeout: time.Duration(timeoutSec) * time.Second,
			Workers:        envInt("MATCH_WORKERS", constants.DefaultMatchWorkers),
		},
		Verifier: VerifierConfig{
			Backend:      envString("VERIFIER_BACKEND", "embedding"),
			EmbeddingURL: envString("EMBEDDING_URL", "http://localhost:8000"),
			Model:        envString("VERIFIER_MODEL", constants.DefaultVerifierModel),
			Metric:       envString("DISTANCE_METRIC", constants.DefaultDistanceMetric),
			DlibModels:   envString("DLIB_MODELS_DIR", "models"),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Thresholds: thresholds,
	}
}

// VerificationThreshold returns the distance at or below which a model/metric pair
// considers two faces the same person. The second value is false for unknown pairs.
func (c *Config) VerificationThreshold(model, metric string) (float64, bool) {
	metrics, ok := c.Thresholds.Models[model]
	if !ok {
		return 0, false
	}
	t, ok := metrics[metric]
	return t, ok
}
