// Package version holds the build identity of tsbridge.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X tsbridge/internal/version.Version=1.0.0 -X tsbridge/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the machine-readable form of the version.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version" toml:"version"`
	Commit    string `json:"commit" yaml:"commit" toml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate" toml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion" toml:"goVersion"`
}

// Get returns the current build info.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Info returns the version with a short commit when one is known
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner
func Full() string {
	return "tsbridge version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
