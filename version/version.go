// Package version reports build information for sollab, taken from linker flags when set and from the VCS metadata
// embedded by the Go toolchain otherwise.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be set via ldflags at build time.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitCommitTime is the RFC 3339 timestamp of the git commit.
	GitCommitTime = ""
	// GitTreeDirty is "true" if the working tree had uncommitted changes.
	GitTreeDirty = ""
)

// Info contains the version information for the build.
type Info struct {
	Version       string
	GitCommit     string
	GitCommitTime string
	GitTreeDirty  bool
	GoVersion     string
}

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			GitCommit = firstNonEmpty(GitCommit, setting.Value)
		case "vcs.time":
			GitCommitTime = firstNonEmpty(GitCommitTime, setting.Value)
		case "vcs.modified":
			GitTreeDirty = firstNonEmpty(GitTreeDirty, setting.Value)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// GetInfo returns the version information of the running binary.
func GetInfo() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		GitCommitTime: GitCommitTime,
		GitTreeDirty:  GitTreeDirty == "true",
		GoVersion:     runtime.Version(),
	}
}

// revision returns the abbreviated commit hash, marked if the tree was dirty, or an empty string if unknown.
func (i Info) revision() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// String returns a multi-line description of the build.
func (i Info) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("sollab version %s\n", i.Version))
	if revision := i.revision(); revision != "" {
		sb.WriteString(fmt.Sprintf("  Commit:     %s\n", revision))
	}
	if i.GitCommitTime != "" {
		built := i.GitCommitTime
		if t, err := time.Parse(time.RFC3339, i.GitCommitTime); err == nil {
			built = t.Format("2006-01-02 15:04:05 MST")
		}
		sb.WriteString(fmt.Sprintf("  Built:      %s\n", built))
	}
	sb.WriteString(fmt.Sprintf("  Go version: %s\n", i.GoVersion))
	return sb.String()
}

// Short returns a single-line version, e.g. "0.1.0+abc1234".
func (i Info) Short() string {
	if revision := i.revision(); revision != "" {
		return i.Version + "+" + revision
	}
	return i.Version
}
