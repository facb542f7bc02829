// Package version carries the build metadata the release pipeline stamps in
// with -ldflags.
package version

import "fmt"

var (
	// Version is the finboard release. Stamped at build time.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// String renders the build info in the layout the version command prints.
func String() string {
	return fmt.Sprintf("finboard %s (commit %s, built %s)", Version, Commit, BuildDate)
}
