package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String returns a one-line version summary for CLI output.
func String() string {
	return fmt.Sprintf("docparse %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
