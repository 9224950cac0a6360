// Package version records the build fingerprint stamped into the strand
// binary.
package version

import (
	"strings"

	"github.com/fatih/color"
)

// Overridable at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var releaseColor = color.New(color.FgCyan, color.Bold)

// Pretty renders the version for terminal output: the release part is
// highlighted, any pre-release suffix stays plain. Empty versions render
// as "dev".
func Pretty() string {
	v := strings.TrimSpace(Version)
	if v == "" {
		return "dev"
	}
	release, suffix, found := strings.Cut(v, "-")
	if !found {
		return releaseColor.Sprint(release)
	}
	return releaseColor.Sprint(release) + "-" + suffix
}
