// Package matcher identifies a probe face by scanning every registered reference.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"github.com/kozaktomas/face-registry/internal/verifier"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoRegisteredFaces = errors.New("no registered faces found")
	ErrNoMatch           = errors.New("no matching face found")
	ErrInvalidThreshold  = errors.New("threshold must be greater than zero")
)

// Source lists and loads reference images.
type Source interface {
	ListUserIDs() ([]string, error)
	Load(userID string) ([]byte, error)
}

// MatchResult is the winning candidate of a scan.
type MatchResult struct {
	UserID     string  `json:"user_id"`
	Distance   float64 `json:"distance"`
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence"`
}

// Comparison records the outcome of comparing the probe with one reference.
// Err is set when the candidate was skipped.
type Comparison struct {
	UserID   string
	Distance float64
	Verified bool
	Err      error
}

// Report is the result of one scan. Comparisons follow the scan order.
type Report struct {
	Best        *MatchResult
	Comparisons []Comparison
}

type Matcher struct {
	source         Source
	verifier       verifier.Verifier
	log            logrus.FieldLogger
	compareTimeout time.Duration
	workers        int
}

type Option func(*Matcher)

// WithCompareTimeout bounds every single verifier call.
func WithCompareTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.compareTimeout = d
		}
	}
}

// WithWorkers sets how many comparisons may run at once.
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.log = l
		}
	}
}

func New(source Source, v verifier.Verifier, opts ...Option) *Matcher {
	m := &Matcher{
		source:         source,
		verifier:       v,
		log:            logrus.StandardLogger(),
		compareTimeout: constants.DefaultCompareTimeout,
		workers:        constants.DefaultMatchWorkers,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recognize compares probe against every registered reference and returns the closest one
// whose distance is strictly below threshold. Candidates that fail to load or compare are
// skipped. Among equal distances the first user id in lexicographic order wins.
//
// When nothing matches, the returned report still carries all comparisons alongside ErrNoMatch.
func (m *Matcher) Recognize(ctx context.Context, probe *imagecodec.Image, threshold float64) (*Report, error) {
	if !(threshold > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	ids, err := m.source.ListUserIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list registered faces: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoRegisteredFaces
	}

	comparisons := make([]Comparison, len(ids))

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				comparisons[i] = Comparison{UserID: id, Err: err}
				return nil
			}
			comparisons[i] = m.compare(ctx, probe, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Comparisons: comparisons}
	for _, c := range comparisons {
		if c.Err != nil {
			continue
		}
		if c.Distance < threshold && (report.Best == nil || c.Distance < report.Best.Distance) {
			report.Best = &MatchResult{
				UserID:     c.UserID,
				Distance:   c.Distance,
				Verified:   c.Verified,
				Confidence: 1 - c.Distance,
			}
		}
	}

	if report.Best == nil {
		return report, ErrNoMatch
	}

	m.log.WithFields(logrus.Fields{
		"user_id":  report.Best.UserID,
		"distance": report.Best.Distance,
		"compared": len(comparisons),
	}).Debug("match found")
	return report, nil
}

func (m *Matcher) compare(ctx context.Context, probe *imagecodec.Image, userID string) Comparison {
	c := Comparison{UserID: userID}
	logger := m.log.WithField("user_id", userID)

	data, err := m.source.Load(userID)
	if err != nil {
		c.Err = fmt.Errorf("failed to load reference: %w", err)
		logger.WithError(err).Warn("skipping candidate: reference unreadable")
		return c
	}

	ref, err := imagecodec.Decode(data)
	if err != nil {
		c.Err = fmt.Errorf("failed to decode reference: %w", err)
		logger.WithError(err).Warn("skipping candidate: reference corrupt")
		return c
	}

	v, err := m.verify(ctx, probe, ref)
	if err != nil {
		c.Err = err
		logger.WithError(err).Warn("skipping candidate: comparison failed")
		return c
	}
	if math.IsNaN(v.Distance) || v.Distance < 0 {
		c.Err = fmt.Errorf("invalid distance %v", v.Distance)
		logger.WithField("distance", v.Distance).Warn("skipping candidate: invalid distance")
		return c
	}

	c.Distance = v.Distance
	c.Verified = v.Verified
	logger.WithFields(logrus.Fields{
		"distance": v.Distance,
		"verified": v.Verified,
	}).Debug("compared")
	return c
}

type verifyResult struct {
	v   verifier.Verification
	err error
}

// verify runs one comparison under the per-comparison timeout. A verifier that ignores
// its context is abandoned at the deadline and its late result discarded.
func (m *Matcher) verify(ctx context.Context, probe, ref *imagecodec.Image) (verifier.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, m.compareTimeout)
	defer cancel()

	ch := make(chan verifyResult, 1)
	go func() {
		v, err := m.verifier.Verify(ctx, probe, ref)
		ch <- verifyResult{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return verifier.Verification{}, fmt.Errorf("comparison timed out after %s: %w", m.compareTimeout, ctx.Err())
	}
}
