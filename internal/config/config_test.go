package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"FACES_DIR", "MATCH_THRESHOLD", "COMPARE_TIMEOUT_SECONDS", "MATCH_WORKERS",
		"VERIFIER_BACKEND", "EMBEDDING_URL", "VERIFIER_MODEL", "DISTANCE_METRIC", "LOG_LEVEL", "LOG_FILE",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Store.Dir != "faces" {
		t.Errorf("expected default faces dir 'faces', got '%s'", cfg.Store.Dir)
	}
	if cfg.Match.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %f", cfg.Match.Threshold)
	}
	if cfg.Match.CompareTimeout != 30*time.Second {
		t.Errorf("expected default compare timeout 30s, got %v", cfg.Match.CompareTimeout)
	}
	if cfg.Match.Workers != 1 {
		t.Errorf("expected default workers 1, got %d", cfg.Match.Workers)
	}
	if cfg.Verifier.Backend != "embedding" {
		t.Errorf("expected default backend 'embedding', got '%s'", cfg.Verifier.Backend)
	}
	if cfg.Verifier.EmbeddingURL != "http://localhost:8000" {
		t.Errorf("expected default embedding URL 'http://localhost:8000', got '%s'", cfg.Verifier.EmbeddingURL)
	}
	if cfg.Verifier.Model != "VGG-Face" || cfg.Verifier.Metric != "cosine" {
		t.Errorf("expected VGG-Face/cosine, got %s/%s", cfg.Verifier.Model, cfg.Verifier.Metric)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("FACES_DIR", "/var/lib/faces")
	t.Setenv("MATCH_THRESHOLD", "0.35")
	t.Setenv("COMPARE_TIMEOUT_SECONDS", "5")
	t.Setenv("MATCH_WORKERS", "4")
	t.Setenv("VERIFIER_BACKEND", "dlib")
	t.Setenv("EMBEDDING_URL", "http://embed:8000")
	t.Setenv("LOG_FILE", "/tmp/face.log")

	cfg := Load()

	if cfg.Store.Dir != "/var/lib/faces" {
		t.Errorf("expected faces dir '/var/lib/faces', got '%s'", cfg.Store.Dir)
	}
	if cfg.Match.Threshold != 0.35 {
		t.Errorf("expected threshold 0.35, got %f", cfg.Match.Threshold)
	}
	if cfg.Match.CompareTimeout != 5*time.Second {
		t.Errorf("expected compare timeout 5s, got %v", cfg.Match.CompareTimeout)
	}
	if cfg.Match.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Match.Workers)
	}
	if cfg.Verifier.Backend != "dlib" {
		t.Errorf("expected backend 'dlib', got '%s'", cfg.Verifier.Backend)
	}
	if cfg.Verifier.EmbeddingURL != "http://embed:8000" {
		t.Errorf("expected embedding URL 'http://embed:8000', got '%s'", cfg.Verifier.EmbeddingURL)
	}
	if cfg.Log.File != "/tmp/face.log" {
		t.Errorf("expected log file '/tmp/face.log', got '%s'", cfg.Log.File)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric threshold", "MATCH_THRESHOLD", "abc"},
		{"negative threshold", "MATCH_THRESHOLD", "-0.5"},
		{"zero threshold", "MATCH_THRESHOLD", "0"},
		{"non-numeric workers", "MATCH_WORKERS", "many"},
		{"zero workers", "MATCH_WORKERS", "0"},
		{"negative timeout", "COMPARE_TIMEOUT_SECONDS", "-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			cfg := Load()

			if cfg.Match.Threshold != 0.6 {
				t.Errorf("expected default threshold 0.6, got %f", cfg.Match.Threshold)
			}
			if cfg.Match.Workers != 1 {
				t.Errorf("expected default workers 1, got %d", cfg.Match.Workers)
			}
			if cfg.Match.CompareTimeout != 30*time.Second {
				t.Errorf("expected default timeout 30s, got %v", cfg.Match.CompareTimeout)
			}
		})
	}
}

func TestVerificationThreshold(t *testing.T) {
	cfg := Load()

	tests := []struct {
		model  string
		metric string
		want   float64
		ok     bool
	}{
		{"VGG-Face", "cosine", 0.68, true},
		{"Facenet", "euclidean_l2", 0.80, true},
		{"Dlib", "euclidean", 0.60, true},
		{"VGG-Face", "manhattan", 0, false},
		{"unknown-model", "cosine", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.model+"/"+tc.metric, func(t *testing.T) {
			got, ok := cfg.VerificationThreshold(tc.model, tc.metric)
			if ok != tc.ok {
				t.Fatalf("VerificationThreshold(%q, %q) ok = %v, want %v", tc.model, tc.metric, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("VerificationThreshold(%q, %q) = %f, want %f", tc.model, tc.metric, got, tc.want)
			}
		})
	}
}

func TestLoad_ThresholdsLoaded(t *testing.T) {
	cfg := Load()

	if len(cfg.Thresholds.Models) == 0 {
		t.Fatal("expected thresholds to be loaded from embedded YAML")
	}

	for _, model := range []string{"VGG-Face", "Facenet", "ArcFace", "Dlib", "buffalo_l"} {
		metrics, ok := cfg.Thresholds.Models[model]
		if !ok {
			t.Errorf("expected model '%s' to be in thresholds", model)
			continue
		}
		for _, metric := range []string{"cosine", "euclidean", "euclidean_l2"} {
			if metrics[metric] <= 0 {
				t.Errorf("expected positive %s threshold for %s, got %f", metric, model, metrics[metric])
			}
		}
	}
}
