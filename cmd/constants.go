package cmd

import "github.com/crytic/sollab/configs"

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = configs.DefaultConfigFileName

// DefaultCompilationPlatform describes the default compilation platform to use if one is not provided
const DefaultCompilationPlatform = configs.DefaultPlatform
