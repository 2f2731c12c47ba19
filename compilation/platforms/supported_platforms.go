package platforms

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// backendGenerators maps platform identifiers to constructors taking an executable path. Populated in init.
var backendGenerators map[string]func(path string) Backend

func init() {
	generators := []func(path string) Backend{
		func(path string) Backend { return NewSolcBackend(path) },
		func(path string) Backend { return NewSolcJSBackend(path) },
	}

	backendGenerators = make(map[string]func(path string) Backend)
	for _, generator := range generators {
		platform := generator("").Platform()
		if _, exists := backendGenerators[platform]; exists {
			panic(fmt.Errorf("the compilation platform '%s' is registered with more than one provider", platform))
		}
		backendGenerators[platform] = generator
	}
}

// GetSupportedPlatforms returns the sorted identifiers of every supported compiler platform.
func GetSupportedPlatforms() []string {
	platforms := maps.Keys(backendGenerators)
	slices.Sort(platforms)
	return platforms
}

// IsSupportedPlatform indicates whether a platform identifier is supported.
func IsSupportedPlatform(platform string) bool {
	_, ok := backendGenerators[platform]
	return ok
}

// NewBackend creates the backend for a platform, using path as the executable or the platform default if empty.
func NewBackend(platform string, path string) (Backend, error) {
	generator, ok := backendGenerators[platform]
	if !ok {
		return nil, fmt.Errorf("compilation platform '%s' is unsupported, expected one of %v", platform, GetSupportedPlatforms())
	}
	return generator(path), nil
}
