// Package version exposes build information for the criterion binary.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name reported by the CLI and the MCP server.
const Name = "criterion"

// Version is injected with -ldflags "-X github.com/Aman-CERP/criterion/pkg/version.Version=..."
// and stays "dev" for local builds.
var Version = "dev"

var (
	// Commit is the short git commit the binary was built from.
	Commit = "unknown"

	// Date is the RFC3339 build date.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form of `criterion version --format json`.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, %s/%s)",
		Name, Version, Commit, Date, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// Short returns the bare version.
func Short() string {
	return Version
}

// GetInfo returns the build information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
