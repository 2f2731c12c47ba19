package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrSourceConflict is returned when a SourceMap already holds different content under the same path.
var ErrSourceConflict = errors.New("source path already holds different content")

// SourceUnit is a single source file taking part in a compilation.
type SourceUnit struct {
	// Path is the canonical path the compiler sees for this source. Import statements in other sources resolve to it.
	Path string `json:"-"`

	// Content is the full source text.
	Content string `json:"content"`
}

// SourceMap maps canonical source paths to their SourceUnit. A SourceMap is built fresh for each compile request and
// serializes to the compiler's standard JSON "sources" shape: {"path": {"content": "..."}}.
type SourceMap map[string]SourceUnit

// NewSourceMap returns an empty SourceMap.
func NewSourceMap() SourceMap {
	return make(SourceMap)
}

// Add inserts a source. Re-adding identical content under the same path is a no-op, while different content under an
// existing path returns ErrSourceConflict and leaves the map unchanged.
func (s SourceMap) Add(path string, content string) error {
	if existing, ok := s[path]; ok {
		if existing.Content != content {
			return fmt.Errorf("%w: %v", ErrSourceConflict, path)
		}
		return nil
	}
	s[path] = SourceUnit{Path: path, Content: content}
	return nil
}

// Contains indicates whether a source exists at the given path.
func (s SourceMap) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Paths returns the source paths in sorted order.
func (s SourceMap) Paths() []string {
	paths := maps.Keys(s)
	slices.Sort(paths)
	return paths
}

// UnmarshalJSON decodes the standard JSON "sources" shape and restores each unit's Path from its key.
func (s *SourceMap) UnmarshalJSON(b []byte) error {
	var raw map[string]SourceUnit
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = make(SourceMap, len(raw))
	for path, unit := range raw {
		unit.Path = path
		(*s)[path] = unit
	}
	return nil
}
