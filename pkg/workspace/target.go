package workspace

import (
	"strings"

	"ompkg/pkg/pkgerr"
)

// Target is the role a binary plays in the workspace.
type Target string

const (
	TargetNone       Target = ""
	TargetComponents Target = "components"
	TargetPlugins    Target = "plugins"
)

// ParseTarget parses "components" or "plugins" (case-insensitive).
// The empty string and "none" yield TargetNone.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TargetNone, nil
	case "components", "component":
		return TargetComponents, nil
	case "plugins", "plugin":
		return TargetPlugins, nil
	}
	return TargetNone, pkgerr.Configf("unknown target %q (want components or plugins)", s)
}

// String returns the text form, "none" for TargetNone.
func (t Target) String() string {
	if t == TargetNone {
		return "none"
	}
	return string(t)
}

// IsSet reports whether a role was chosen.
func (t Target) IsSet() bool {
	return t != TargetNone
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
