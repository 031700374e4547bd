// Package version holds build identification injected at link time via
// -ldflags "-X github.com/planforge/planforge/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the semantic version of the binary.
	Version = "0.1.0-dev"
	// Commit is the git commit hash of the build.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Full renders the version with commit and build metadata.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}
