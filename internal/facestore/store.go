// Package facestore keeps one reference JPEG per user in a flat directory.
package facestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrStorage       = errors.New("storage error")
	ErrNotFound      = errors.New("reference not found")
	ErrInvalidUserID = errors.New("invalid user id")
)

// Combining marks are allowed after the first rune for scripts without precomposed forms.
var userIDPattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{M}\p{N}._-]*$`)

// ValidateUserID normalizes id to NFC and checks it is a safe file name stem.
// Composed and decomposed spellings of the same name map to one user.
func ValidateUserID(id string) (string, error) {
	id = norm.NFC.String(strings.TrimSpace(id))
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(id) > constants.MaxUserIDLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidUserID, constants.MaxUserIDLength)
	}
	if !userIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q must start with a letter or digit and may only contain letters, digits, '.', '_' and '-'", ErrInvalidUserID, id)
	}
	return id, nil
}

// Store is a handle on a faces directory. The zero value is not usable; use New.
type Store struct {
	dir   string
	locks *keyedMutex
}

func New(dir string) *Store {
	return &Store{dir: dir, locks: newKeyedMutex()}
}

// EnsureReady creates the store directory if it does not exist.
func (s *Store) EnsureReady() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStorage, s.dir, err)
	}
	return nil
}

// Path returns the reference file path for userID. The id is not validated.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.dir, userID+constants.ReferenceExt)
}

// Save atomically writes the canonical JPEG of img as the reference for userID,
// replacing any previous reference.
func (s *Store) Save(userID string, img *imagecodec.Image) (string, error) {
	id, err := ValidateUserID(userID)
	if err != nil {
		return "", err
	}
	if err := s.EnsureReady(); err != nil {
		return "", err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	path := s.Path(id)
	if err := renameio.WriteFile(path, img.JPEG(), 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrStorage, path, err)
	}
	return path, nil
}

func (s *Store) Exists(userID string) (bool, error) {
	id, err := ValidateUserID(userID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(s.Path(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
}

// Delete removes the reference for userID. It reports false when there was nothing to delete.
func (s *Store) Delete(userID string) (bool, error) {
	id, err := ValidateUserID(userID)
	if err != nil {
		return false, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return true, nil
}

// Load returns the raw reference bytes for userID.
func (s *Store) Load(userID string) ([]byte, error) {
	id, err := ValidateUserID(userID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return data, nil
}

// ListUserIDs returns the ids of all stored references in lexicographic order.
// A missing directory is an empty store.
func (s *Store) ListUserIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != constants.ReferenceExt {
			continue
		}
		id := strings.TrimSuffix(name, constants.ReferenceExt)
		normalized, err := ValidateUserID(id)
		if err != nil {
			continue
		}
		ids = append(ids, normalized)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// keyedMutex serializes work per key. Entries are dropped once no goroutine holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
