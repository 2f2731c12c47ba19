package sources

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Loader fetches the content of a source by canonical path. A source that does not exist is reported with
// found == false and a nil error; errors are reserved for failures to look the source up at all.
type Loader interface {
	Load(ctx context.Context, canonicalPath string) (content string, found bool, err error)
}

// MapLoader serves sources from memory.
type MapLoader map[string]string

// Load implements Loader.
func (m MapLoader) Load(ctx context.Context, canonicalPath string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	content, ok := m[canonicalPath]
	return content, ok, nil
}

// DirectoryLoader serves sources from a directory on disk, such as node_modules or a foundry lib directory, where
// the canonical path is relative to the directory.
type DirectoryLoader struct {
	Root string
}

// Load implements Loader.
func (d DirectoryLoader) Load(ctx context.Context, canonicalPath string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if !filepath.IsLocal(filepath.FromSlash(canonicalPath)) {
		return "", false, nil
	}
	b, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(canonicalPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// MultiLoader tries each loader in order and returns the first source found. An error from one loader does not stop
// the search, but is returned if no later loader finds the source.
type MultiLoader []Loader

// Load implements Loader.
func (m MultiLoader) Load(ctx context.Context, canonicalPath string) (string, bool, error) {
	var firstErr error
	for _, loader := range m {
		content, found, err := loader.Load(ctx, canonicalPath)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return content, true, nil
		}
	}
	return "", false, firstErr
}
