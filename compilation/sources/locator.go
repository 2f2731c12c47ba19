package sources

import (
	"path"
	"strings"

	"golang.org/x/exp/slices"
)

// Package is a recognized external package tree. Import specifiers beginning with Namespace are rewritten to begin
// with Root, which is the canonical path under which the package's sources are loaded.
type Package struct {
	Namespace string `json:"namespace"`
	Root      string `json:"root"`
}

// rootPrefix returns Root with exactly one trailing slash, so sibling trees sharing a name prefix do not match.
func (p Package) rootPrefix() string {
	return strings.TrimSuffix(p.Root, "/") + "/"
}

// DefaultPackages returns the external package trees recognized out of the box.
func DefaultPackages() []Package {
	return []Package{
		{Namespace: "@openzeppelin/contracts/", Root: "@openzeppelin/contracts/"},
		{Namespace: "@openzeppelin/contracts-upgradeable/", Root: "@openzeppelin/contracts-upgradeable/"},
		{Namespace: "@uniswap/v2-core/", Root: "@uniswap/v2-core/"},
		{Namespace: "@uniswap/v3-core/", Root: "@uniswap/v3-core/"},
		{Namespace: "@uniswap/v3-periphery/", Root: "@uniswap/v3-periphery/"},
		{Namespace: "@chainlink/contracts/", Root: "@chainlink/contracts/"},
		{Namespace: "solmate/", Root: "solmate/src/"},
		{Namespace: "forge-std/", Root: "forge-std/src/"},
	}
}

// ResolutionKind classifies how an import specifier was resolved.
type ResolutionKind int

const (
	// Unresolved specifiers are neither relative nor inside a recognized package namespace, or escape the root.
	Unresolved ResolutionKind = iota
	// External specifiers begin with a recognized package namespace.
	External
	// Relative specifiers begin with "./" or "../" and resolve against the importing file's directory.
	Relative
)

// String returns a human-readable name for the kind.
func (k ResolutionKind) String() string {
	switch k {
	case External:
		return "external"
	case Relative:
		return "relative"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of canonicalizing an import specifier.
type Resolution struct {
	Kind ResolutionKind
	// Path is the canonical path, empty when Kind is Unresolved.
	Path string
}

// Locator canonicalizes import specifiers and decides which canonical paths may be fetched from a Loader.
type Locator struct {
	// packages is sorted by descending namespace length so the most specific namespace wins.
	packages []Package

	// allowLocal permits loading relative imports that fall outside every package tree, e.g. sibling files of a
	// source compiled from disk.
	allowLocal bool
}

// NewLocator creates a Locator recognizing the given package trees.
func NewLocator(packages []Package, allowLocal bool) *Locator {
	sorted := slices.Clone(packages)
	slices.SortStableFunc(sorted, func(a, b Package) int {
		return len(b.Namespace) - len(a.Namespace)
	})
	return &Locator{packages: sorted, allowLocal: allowLocal}
}

// Packages returns the recognized package trees, most specific first.
func (l *Locator) Packages() []Package {
	return slices.Clone(l.packages)
}

// Canonicalize resolves specifier, as written in the source at importerPath, to a canonical path.
//
// Relative specifiers pop one directory of the importer per leading "../", and fail to resolve if they pop past the
// root. Specifiers in a recognized namespace are rewritten onto the package root. The result is normalized so that
// equivalent spellings map to the same path.
func (l *Locator) Canonicalize(importerPath string, specifier string) Resolution {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return Resolution{Kind: Unresolved}
	}

	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		resolved, ok := resolveRelative(path.Dir(importerPath), specifier)
		if !ok {
			return Resolution{Kind: Unresolved}
		}
		return Resolution{Kind: Relative, Path: resolved}
	}

	for _, pkg := range l.packages {
		if !strings.HasPrefix(specifier, pkg.Namespace) {
			continue
		}
		resolved, ok := normalize(pkg.rootPrefix() + strings.TrimPrefix(specifier, pkg.Namespace))
		if !ok || !strings.HasPrefix(resolved, pkg.rootPrefix()) {
			return Resolution{Kind: Unresolved}
		}
		return Resolution{Kind: External, Path: resolved}
	}
	return Resolution{Kind: Unresolved}
}

// PackageOf returns the package tree containing the canonical path, if any.
func (l *Locator) PackageOf(canonicalPath string) (Package, bool) {
	for _, pkg := range l.packages {
		if strings.HasPrefix(canonicalPath, pkg.rootPrefix()) {
			return pkg, true
		}
	}
	return Package{}, false
}

// Loadable indicates whether the resolved path may be fetched from an external loader. Paths inside a recognized
// package tree always are. Relative paths outside every tree are only loadable when local imports are allowed.
func (l *Locator) Loadable(resolution Resolution) bool {
	switch resolution.Kind {
	case External:
		return true
	case Relative:
		if _, ok := l.PackageOf(resolution.Path); ok {
			return true
		}
		return l.allowLocal
	default:
		return false
	}
}

// resolveRelative joins a relative specifier onto dir, popping one segment of dir per leading "../".
func resolveRelative(dir string, specifier string) (string, bool) {
	segments := make([]string, 0)
	if dir != "." && dir != "/" && dir != "" {
		segments = strings.Split(strings.Trim(dir, "/"), "/")
	}

	rest := specifier
	for {
		if strings.HasPrefix(rest, "./") {
			rest = rest[2:]
		} else if strings.HasPrefix(rest, "../") {
			if len(segments) == 0 {
				return "", false
			}
			segments = segments[:len(segments)-1]
			rest = rest[3:]
		} else {
			break
		}
	}

	return normalize(strings.Join(append(segments, rest), "/"))
}

// normalize cleans a slash-separated path and rejects paths that are empty or escape the root.
func normalize(p string) (string, bool) {
	cleaned := path.Clean(strings.TrimLeft(p, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
