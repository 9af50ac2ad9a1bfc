// Package registry implements the face registry operations on top of the store,
// the verifier and the matcher.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/facestore"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/kozaktomas/face-registry/internal/matcher"
	"github.com/kozaktomas/face-registry/internal/verifier"
	"github.com/sirupsen/logrus"
)

type Registry struct {
	store    *facestore.Store
	verifier verifier.Verifier
	matcher  *matcher.Matcher
	log      logrus.FieldLogger
}

// New creates a registry. The matcher shares the registry's logger unless opts override it.
func New(store *facestore.Store, v verifier.Verifier, logger logrus.FieldLogger, opts ...matcher.Option) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts = append([]matcher.Option{matcher.WithLogger(logger)}, opts...)
	return &Registry{
		store:    store,
		verifier: v,
		matcher:  matcher.New(store, v, opts...),
		log:      logger,
	}
}

// Register decodes a transport-encoded image and stores it as the reference for userID.
// Nothing is written unless the image decodes and contains a face.
func (r *Registry) Register(ctx context.Context, userID, payload string) error {
	id, err := facestore.ValidateUserID(userID)
	if err != nil {
		return err
	}

	img, err := imagecodec.DecodeTransport(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return r.RegisterImage(ctx, id, img)
}

// RegisterImage stores an already decoded image as the reference for userID.
func (r *Registry) RegisterImage(ctx context.Context, userID string, img *imagecodec.Image) error {
	id, err := facestore.ValidateUserID(userID)
	if err != nil {
		return err
	}
	logger := r.log.WithField("user_id", id)

	found, err := r.verifier.DetectAnyFace(ctx, img)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFaceProcessing, err)
	}
	if !found {
		return ErrNoFaceDetected
	}

	path, err := r.store.Save(id, img)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	logger.WithField("path", path).Info("face registered")
	return nil
}

// Recognize identifies the face in a transport-encoded image.
// On ErrNoMatch the report is still returned with every comparison.
func (r *Registry) Recognize(ctx context.Context, payload string, threshold float64) (*matcher.Report, error) {
	img, err := imagecodec.DecodeTransport(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return r.matcher.Recognize(ctx, img, threshold)
}

// Delete removes the reference for userID.
func (r *Registry) Delete(userID string) error {
	deleted, err := r.store.Delete(userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFaceNotFound
	}
	r.log.WithField("user_id", userID).Info("face deleted")
	return nil
}

// List returns all registered user ids in lexicographic order.
func (r *Registry) List() ([]string, error) {
	ids, err := r.store.ListUserIDs()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// IsUserError reports whether err is one of the registry's expected failures,
// as opposed to an unexpected internal error.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrInvalidUserID, ErrInvalidImage, ErrNoFaceDetected, ErrFaceProcessing,
		ErrStorage, ErrFaceNotFound, matcher.ErrNoMatch, matcher.ErrNoRegisteredFaces,
		matcher.ErrInvalidThreshold,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
