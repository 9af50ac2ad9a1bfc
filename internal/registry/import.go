package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-registry/internal/facestore"
	"github.com/kozaktomas/face-registry/internal/imagecodec"
)

// importExtensions are the file extensions Import picks up.
var importExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImportResult lists imported user ids and the failures keyed by file name.
type ImportResult struct {
	Imported []string          `json:"imported"`
	Failed   map[string]string `json:"failed"`
}

// ImportCandidates returns the image files in dir that Import would process, sorted by name.
func ImportCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read import directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if importExtensions[strings.ToLower(filepath.Ext(name))] {
			files = append(files, name)
		}
	}
	return files, nil
}

// Import registers every image in dir, using the file name without extension as user id.
// A failing file is recorded and skipped. progress, if not nil, is called once per file.
func (r *Registry) Import(ctx context.Context, dir string, progress func()) (*ImportResult, error) {
	files, err := ImportCandidates(dir)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: []string{}, Failed: map[string]string{}}
	seen := make(map[string]string, len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		userID, err := facestore.ValidateUserID(strings.TrimSuffix(name, filepath.Ext(name)))
		if err == nil {
			err = r.importFile(ctx, filepath.Join(dir, name), userID, seen)
		}
		if err != nil {
			result.Failed[name] = err.Error()
			r.log.WithField("file", name).WithError(err).Warn("import failed")
		} else {
			result.Imported = append(result.Imported, userID)
			seen[userID] = name
		}

		if progress != nil {
			progress()
		}
	}

	return result, nil
}

func (r *Registry) importFile(ctx context.Context, path, userID string, seen map[string]string) error {
	if prev, ok := seen[userID]; ok {
		return fmt.Errorf("duplicate user id %q, already imported from %s", userID, prev)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	img, err := imagecodec.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return r.RegisterImage(ctx, userID, img)
}
