package sources

import (
	"context"
	"fmt"

	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/logging"
)

// WarningReason describes why an import could not be added to the source map.
type WarningReason string

const (
	// ReasonUnresolved means the specifier is neither relative nor in a recognized package namespace, or it escapes
	// the root.
	ReasonUnresolved WarningReason = "unresolved import specifier"
	// ReasonNotLoadable means the specifier resolved outside every recognized package tree.
	ReasonNotLoadable WarningReason = "import is outside recognized package trees"
	// ReasonMissing means the loader has no source at the canonical path.
	ReasonMissing WarningReason = "source not found"
	// ReasonLoadFailed means the loader failed to look the source up.
	ReasonLoadFailed WarningReason = "source could not be loaded"
)

// ResolutionWarning describes an import that was skipped. Skipped imports are not fatal: the compiler reports them
// as its own diagnostics if they turn out to matter.
type ResolutionWarning struct {
	// Importer is the canonical path of the source containing the import.
	Importer string
	// Specifier is the import path as written.
	Specifier string
	// Path is the canonical path the specifier resolved to, if it resolved at all.
	Path   string
	Reason WarningReason
	// Err is the loader error for ReasonLoadFailed.
	Err error
}

// String returns a human-readable description of the warning.
func (w ResolutionWarning) String() string {
	msg := fmt.Sprintf("%v: %q imported by %v", w.Reason, w.Specifier, w.Importer)
	if w.Path != "" && w.Path != w.Specifier {
		msg += fmt.Sprintf(" (resolved to %v)", w.Path)
	}
	if w.Err != nil {
		msg += ": " + w.Err.Error()
	}
	return msg
}

// ResolveResult is the flattened import closure of a root source.
type ResolveResult struct {
	Sources  types.SourceMap
	Warnings []ResolutionWarning
}

// Resolver discovers the transitive import closure of a source.
type Resolver struct {
	locator *Locator
	loader  Loader
	logger  *logging.Logger
}

// NewResolver creates a Resolver that canonicalizes with locator and fetches external sources from loader.
func NewResolver(locator *Locator, loader Loader) *Resolver {
	if loader == nil {
		loader = MapLoader{}
	}
	return &Resolver{
		locator: locator,
		loader:  loader,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE),
	}
}

// Resolve builds the source map for rootContent, stored at rootPath, and everything it transitively imports.
//
// Traversal is depth-first and pre-order: each newly loaded source is fully explored before the next import of its
// importer. A canonical path already in the map is skipped, which terminates cycles and avoids reloading diamond
// dependencies. Imports that cannot be resolved or loaded are left out and produce one warning per importing edge.
// The only error returned is cancellation of ctx.
func (r *Resolver) Resolve(ctx context.Context, rootPath string, rootContent string) (*ResolveResult, error) {
	state := &resolveState{
		result: &ResolveResult{Sources: types.NewSourceMap(), Warnings: make([]ResolutionWarning, 0)},
		failed: make(map[string]ResolutionWarning),
		warned: make(map[string]struct{}),
	}
	if err := state.result.Sources.Add(rootPath, rootContent); err != nil {
		return nil, err
	}
	if err := r.visit(ctx, state, rootPath, rootContent); err != nil {
		return nil, err
	}
	return state.result, nil
}

// resolveState is the mutable state of a single Resolve call.
type resolveState struct {
	result *ResolveResult
	// failed holds the first warning produced for each canonical path that could not be added, so the loader is not
	// asked twice for the same path.
	failed map[string]ResolutionWarning
	// warned holds the importer and specifier pairs that already produced a warning.
	warned map[string]struct{}
}

// warn records a warning, at most once per importer and specifier.
func (r *Resolver) warn(state *resolveState, warning ResolutionWarning) {
	if warning.Path != "" {
		if _, ok := state.failed[warning.Path]; !ok {
			state.failed[warning.Path] = warning
		}
	}
	key := warning.Importer + "\x00" + warning.Specifier
	if _, ok := state.warned[key]; ok {
		return
	}
	state.warned[key] = struct{}{}
	state.result.Warnings = append(state.result.Warnings, warning)
	r.logger.Warn(warning.String())
}

// visit adds the sources imported by content, which lives at importerPath, and recurses into each one it loads.
func (r *Resolver) visit(ctx context.Context, state *resolveState, importerPath string, content string) error {
	for _, specifier := range ExtractImports(content) {
		if err := ctx.Err(); err != nil {
			return err
		}

		resolution := r.locator.Canonicalize(importerPath, specifier)
		if resolution.Kind == Unresolved {
			r.warn(state, ResolutionWarning{Importer: importerPath, Specifier: specifier, Reason: ReasonUnresolved})
			continue
		}
		if state.result.Sources.Contains(resolution.Path) {
			continue
		}
		if previous, ok := state.failed[resolution.Path]; ok {
			r.warn(state, ResolutionWarning{Importer: importerPath, Specifier: specifier, Path: resolution.Path, Reason: previous.Reason, Err: previous.Err})
			continue
		}
		if !r.locator.Loadable(resolution) {
			r.warn(state, ResolutionWarning{Importer: importerPath, Specifier: specifier, Path: resolution.Path, Reason: ReasonNotLoadable})
			continue
		}

		loaded, found, err := r.loader.Load(ctx, resolution.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.warn(state, ResolutionWarning{Importer: importerPath, Specifier: specifier, Path: resolution.Path, Reason: ReasonLoadFailed, Err: err})
			continue
		}
		if !found {
			r.warn(state, ResolutionWarning{Importer: importerPath, Specifier: specifier, Path: resolution.Path, Reason: ReasonMissing})
			continue
		}

		if err := state.result.Sources.Add(resolution.Path, loaded); err != nil {
			return err
		}
		r.logger.Trace("Resolved import ", specifier, " to ", resolution.Path)
		if err := r.visit(ctx, state, resolution.Path, loaded); err != nil {
			return err
		}
	}
	return nil
}
