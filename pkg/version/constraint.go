package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"ompkg/pkg/pkgerr"
)

// Any is the constraint text that matches every version.
const Any = "*"

// Constraint is a predicate over versions.
type Constraint struct {
	text string
	c    *semver.Constraints // nil matches everything
}

// ParseConstraint parses constraint text. "", "*" and "latest" match any
// version, pre-releases included. Everything else uses semver range syntax:
// exact ("1.2.3", "=v1.2.3"), comparisons (">=1.0, <2"), caret ("^1.2"),
// tilde ("~1.2"), wildcards ("1.x") and "||" unions.
func ParseConstraint(text string) (*Constraint, error) {
	trimmed := strings.TrimSpace(text)
	switch strings.ToLower(trimmed) {
	case "", Any, "latest":
		return &Constraint{text: Any}, nil
	}

	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return nil, pkgerr.Versionf("invalid constraint %q: %v", text, err)
	}
	return &Constraint{text: trimmed, c: c}, nil
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(text string) *Constraint {
	c, err := ParseConstraint(text)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the constraint text ("*" for any).
func (c *Constraint) String() string {
	return c.text
}

// IsAny reports whether the constraint accepts every version.
func (c *Constraint) IsAny() bool {
	return c.c == nil
}

// Check reports whether v satisfies the constraint.
func (c *Constraint) Check(v *Version) bool {
	if c.c == nil {
		return true
	}
	return c.c.Check(v.v)
}

// LatestMatching returns the highest version in vs satisfying the
// constraint, or nil when none does. Among versions of equal precedence
// the first one wins.
func (c *Constraint) LatestMatching(vs []*Version) *Version {
	var best *Version
	for _, v := range vs {
		if v == nil || !c.Check(v) {
			continue
		}
		if best == nil || best.LessThan(v) {
			best = v
		}
	}
	return best
}
