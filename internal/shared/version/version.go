// Package version holds the build version, set at link time with
// -ldflags "-X github.com/sportello-bot/sportello/internal/shared/version.Current=v1.2.3".
package version

import "strings"

// Current is the running build version.
var Current = "dev"

// Normalize ensures version string has "v" prefix.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3", "dev" -> "dev"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || version == "dev" {
		return version
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// String returns the normalized current version.
func String() string {
	return Normalize(Current)
}
