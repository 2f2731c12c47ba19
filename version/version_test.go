package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestInfoFormatting ensures build information is rendered with and without VCS metadata.
func TestInfoFormatting(t *testing.T) {
	info := Info{Version: "0.1.0", GoVersion: "go1.23.3"}
	assert.Equal(t, "0.1.0", info.Short())
	assert.Equal(t, "sollab version 0.1.0\n  Go version: go1.23.3\n", info.String())

	info.GitCommit = "0123456789abcdef"
	info.GitTreeDirty = true
	info.GitCommitTime = "2024-05-01T10:00:00Z"
	assert.Equal(t, "0.1.0+0123456-dirty", info.Short())
	assert.Contains(t, info.String(), "Commit:     0123456-dirty")
	assert.Contains(t, info.String(), "Built:      2024-05-01 10:00:00 UTC")
}
