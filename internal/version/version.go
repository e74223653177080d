// Package version parses the loosely formatted versions reported by snaps.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Parse returns the canonical semantic version ("vX.Y.Z[-pre]") for raw.
// A leading "v" is optional and a "MAJOR.MINOR" version gains a ".0" patch
// level, keeping any pre-release suffix.
func Parse(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty version")
	}
	trimmed = strings.TrimPrefix(trimmed, "v")

	core, suffix := trimmed, ""
	if idx := strings.IndexAny(trimmed, "-+"); idx >= 0 {
		core, suffix = trimmed[:idx], trimmed[idx:]
	}
	if strings.Count(core, ".") == 1 {
		core += ".0"
	}

	candidate := "v" + core + suffix
	if strings.Count(core, ".") != 2 || !semver.IsValid(candidate) {
		return "", fmt.Errorf("cannot parse version %q", raw)
	}
	return semver.Canonical(candidate), nil
}

// AtLeast reports whether version is greater than or equal to minimum.
// An empty minimum accepts every version.
func AtLeast(version, minimum string) (bool, error) {
	if strings.TrimSpace(minimum) == "" {
		return true, nil
	}
	v, err := Parse(version)
	if err != nil {
		return false, err
	}
	m, err := Parse(minimum)
	if err != nil {
		return false, err
	}
	return semver.Compare(v, m) >= 0, nil
}
