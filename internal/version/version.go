package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the binary. Overridden at build time.
	Version = "dev"
	// Commit is the git commit hash. Overridden at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp. Overridden at build time.
	BuildDate = "unknown"
)

// String formats the build information for the version command.
func String() string {
	return fmt.Sprintf("vwapbt %s\ncommit: %s\nbuilt: %s\ngo: %s\n", Version, Commit, BuildDate, runtime.Version())
}
