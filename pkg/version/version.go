// Package version parses release tags and version constraints and selects
// the newest release satisfying a constraint.
package version

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ompkg/pkg/pkgerr"
)

// embeddedVersion finds a version inside tags such as "release-1.4.0".
var embeddedVersion = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z][0-9A-Za-z.-]*)?`)

// Version is a parsed release version. The zero value is not usable.
type Version struct {
	v        *semver.Version
	original string
}

// Parse parses a version string. A leading "v" is optional and partial
// versions such as "1.2" are completed with zeros.
func Parse(text string) (*Version, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, pkgerr.Versionf("empty version")
	}

	candidate := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	if sv, err := semver.NewVersion(candidate); err == nil {
		return &Version{v: sv, original: text}, nil
	}

	match := embeddedVersion.FindString(trimmed)
	if match == "" {
		return nil, pkgerr.Versionf("no numeric version in %q", text)
	}
	sv, err := semver.NewVersion(match)
	if err != nil {
		return nil, pkgerr.Versionf("parse %q: %v", text, err)
	}
	return &Version{v: sv, original: text}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(text string) *Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical form, e.g. "1.2.0" for "v1.2".
func (v *Version) String() string {
	return v.v.String()
}

// Original returns the text the version was parsed from.
func (v *Version) Original() string {
	return v.original
}

// Prerelease returns the pre-release component, if any.
func (v *Version) Prerelease() string {
	return v.v.Prerelease()
}

// Compare returns -1, 0 or 1. Build metadata does not take part.
func (v *Version) Compare(o *Version) int {
	return v.v.Compare(o.v)
}

// LessThan reports whether v orders before o.
func (v *Version) LessThan(o *Version) bool {
	return v.Compare(o) < 0
}

// Equal reports whether both versions have identical components,
// build metadata included, so equal versions share one canonical form.
func (v *Version) Equal(o *Version) bool {
	return v.Compare(o) == 0 && v.v.Metadata() == o.v.Metadata()
}
