package registry

import (
	"errors"

	"github.com/kozaktomas/face-registry/internal/facestore"
)

// Errors returned by Registry operations. Their messages are shown to callers verbatim.
var (
	ErrInvalidUserID  = facestore.ErrInvalidUserID
	ErrInvalidImage   = errors.New("invalid image data")
	ErrNoFaceDetected = errors.New("no face detected in image")
	ErrFaceProcessing = errors.New("face processing failed")
	ErrStorage        = errors.New("failed to save image")
	ErrFaceNotFound   = errors.New("face not found")
)
