package buildconfig

import "fmt"

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/dreamlog/internal/buildconfig.version=v1.2.0
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// String formats version and commit for CLI output.
func String() string {
	return fmt.Sprintf("dreamlog %s (%s)", version, commit)
}
