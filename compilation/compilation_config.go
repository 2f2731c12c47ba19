package compilation

import (
	"fmt"
	"path/filepath"

	"github.com/crytic/sollab/compilation/channel"
	"github.com/crytic/sollab/compilation/platforms"
	"github.com/crytic/sollab/compilation/sources"
	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/workspace"
)

// CompilationConfig describes how sources are resolved and compiled.
type CompilationConfig struct {
	// Platform references an identifier indicating which compiler backend to use.
	Platform string `json:"platform"`

	// CompilerPath is the compiler executable. The platform's default is used if empty.
	CompilerPath string `json:"compilerPath"`

	// RootPath is the path the compiled source is stored under.
	RootPath string `json:"rootPath"`

	// EVMVersion selects the target EVM version. The compiler's default is used if empty.
	EVMVersion string `json:"evmVersion"`

	// Optimizer describes the optimizer settings, if any.
	Optimizer *types.OptimizerSettings `json:"optimizer"`

	// Packages lists the recognized external package trees.
	Packages []sources.Package `json:"packages"`

	// PackageDirectories lists directories, e.g. node_modules, external package sources are loaded from. Relative
	// paths are resolved against BaseDirectory.
	PackageDirectories []string `json:"packageDirectories"`

	// AllowLocalImports allows relative imports outside recognized packages, loaded from BaseDirectory.
	AllowLocalImports bool `json:"allowLocalImports"`

	// BaseDirectory is the directory local sources and relative package directories are resolved against.
	BaseDirectory string `json:"baseDirectory"`
}

// NewCompilationConfig returns a CompilationConfig with default values for a given platform identifier.
func NewCompilationConfig(platform string) (*CompilationConfig, error) {
	if !platforms.IsSupportedPlatform(platform) {
		return nil, fmt.Errorf("could not get default compilation configs: platform '%s' is unsupported", platform)
	}
	return &CompilationConfig{
		Platform:           platform,
		RootPath:           DefaultRootPath,
		Packages:           sources.DefaultPackages(),
		PackageDirectories: []string{"node_modules"},
		BaseDirectory:      ".",
	}, nil
}

// Validate validates that the CompilationConfig meets certain requirements.
func (c *CompilationConfig) Validate() error {
	if !platforms.IsSupportedPlatform(c.Platform) {
		return fmt.Errorf("compilation platform '%s' is unsupported, expected one of %v", c.Platform, platforms.GetSupportedPlatforms())
	}
	if c.RootPath == "" {
		return fmt.Errorf("compilation root path cannot be empty")
	}
	if c.Optimizer != nil && c.Optimizer.Runs < 0 {
		return fmt.Errorf("optimizer runs cannot be negative")
	}
	return nil
}

// Settings returns the compiler settings described by the config.
func (c *CompilationConfig) Settings() types.CompilerSettings {
	return types.CompilerSettings{
		OutputSelection: types.DefaultOutputSelection(),
		EVMVersion:      c.EVMVersion,
		Optimizer:       c.Optimizer,
	}
}

// NewResolver creates the dependency resolver described by the config.
func (c *CompilationConfig) NewResolver() *sources.Resolver {
	loaders := make(sources.MultiLoader, 0, len(c.PackageDirectories)+1)
	for _, directory := range c.PackageDirectories {
		if !filepath.IsAbs(directory) {
			directory = filepath.Join(c.BaseDirectory, directory)
		}
		loaders = append(loaders, sources.DirectoryLoader{Root: directory})
	}
	if c.AllowLocalImports {
		loaders = append(loaders, sources.DirectoryLoader{Root: c.BaseDirectory})
	}
	return sources.NewResolver(sources.NewLocator(c.Packages, c.AllowLocalImports), loaders)
}

// NewBackend creates the compiler backend described by the config.
func (c *CompilationConfig) NewBackend() (platforms.Backend, error) {
	return platforms.NewBackend(c.Platform, c.CompilerPath)
}

// NewCompiler creates a Compiler described by the config over editor, along with the channel it compiles through.
// The caller is responsible for closing the channel.
func (c *CompilationConfig) NewCompiler(editor *workspace.Editor) (*Compiler, *channel.Channel, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	backend, err := c.NewBackend()
	if err != nil {
		return nil, nil, err
	}
	compilerChannel := channel.NewChannel(channel.WorkerTransportFactory(backend))
	compiler := NewCompiler(compilerChannel, c.NewResolver(), editor, c.Settings())
	compiler.SetRootPath(c.RootPath)
	return compiler, compilerChannel, nil
}
