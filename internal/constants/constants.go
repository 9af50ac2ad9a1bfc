// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the default maximum distance for a recognition match.
	// Lower values = stricter matching
	DefaultMatchThreshold = 0.6

	// DefaultVerifierModel is the model name used to look up verification thresholds
	DefaultVerifierModel = "VGG-Face"

	// DefaultDistanceMetric is the default metric for comparing face embeddings
	DefaultDistanceMetric = "cosine"
)

// Storage constants
const (
	// DefaultFacesDir is the directory used by the CLI when FACES_DIR is not set
	DefaultFacesDir = "faces"

	// ReferenceExt is the file extension of stored reference images
	ReferenceExt = ".jpg"

	// MaxUserIDLength is the maximum length of a user identifier
	MaxUserIDLength = 128
)

// Image processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) of a canonical image
	MaxImageSize = 1920

	// JPEGQuality is the quality used when encoding canonical images
	JPEGQuality = 95

	// MaxTransportSize is the largest decoded payload accepted from callers (32 MiB)
	MaxTransportSize = 32 << 20
)

// Processing constants
const (
	// DefaultCompareTimeout bounds a single verifier comparison
	DefaultCompareTimeout = 30 * time.Second

	// DefaultMatchWorkers is the default number of parallel comparisons
	DefaultMatchWorkers = 1
)
