package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestPrettyHighlightsRelease(t *testing.T) {
	oldColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = oldColor }()
	oldVersion := Version
	defer func() { Version = oldVersion }()

	Version = "1.2.3-rc1"
	if got := Pretty(); got != "1.2.3-rc1" {
		t.Fatalf("Pretty() = %q", got)
	}
	Version = "2.0.0"
	if got := Pretty(); got != "2.0.0" {
		t.Fatalf("Pretty() = %q", got)
	}
	Version = "  "
	if got := Pretty(); got != "dev" {
		t.Fatalf("Pretty() = %q, want dev", got)
	}
}
