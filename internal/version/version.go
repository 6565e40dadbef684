// Package version holds build metadata set through ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Name is the binary name printed by the version command.
const Name = "pulse-toast"

var (
	// Version is the release version.
	Version = "development"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// String returns the version including the commit hash when known.
func String() string {
	if Commit != "unknown" {
		return Version + "+" + Commit
	}
	return Version
}

// Full returns the one-line banner printed by the version command.
func Full() string {
	s := fmt.Sprintf("%s %s (%s/%s, %s)", Name, String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
	if Date != "unknown" {
		s += " built " + Date
	}
	return s
}
