package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ExecuteInDirectory runs method with the working directory set to testPath, or to its parent directory if testPath
// is a file, and restores the previous working directory afterwards so temporary directories can be cleaned up.
func ExecuteInDirectory(t *testing.T, testPath string, method func()) {
	previous, err := os.Getwd()
	require.NoError(t, err)

	info, err := os.Stat(testPath)
	require.NoError(t, err)
	directory := testPath
	if !info.IsDir() {
		directory = filepath.Dir(testPath)
	}

	require.NoError(t, os.Chdir(directory))
	defer func() {
		require.NoError(t, os.Chdir(previous))
	}()
	method()
}
