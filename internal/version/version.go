// Package version holds build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Name is the application name reported by the version endpoint and CLI.
const Name = "camrelay"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Name      string
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description, e.g. "camrelay dev (unknown)".
func String() string {
	return fmt.Sprintf("%s %s (%s)", Name, Version, GitCommit)
}
