package registry

import (
	"regexp"
	"strings"
)

// Kind is the role a file plays once installed.
type Kind int

const (
	KindIgnored Kind = iota
	KindInclude
	KindRootBinary
	KindComponentBinary
	KindPluginBinary
	KindBinary
)

// String returns the bucket name.
func (k Kind) String() string {
	switch k {
	case KindInclude:
		return "include"
	case KindRootBinary:
		return "root binary"
	case KindComponentBinary:
		return "component binary"
	case KindPluginBinary:
		return "plugin binary"
	case KindBinary:
		return "binary"
	}
	return "ignored"
}

var (
	includePattern = regexp.MustCompile(`(?i)\.inc$`)
	binaryPattern  = regexp.MustCompile(`(?i)\.(dll|so|dylib)$`)

	// Binaries named like the AMX runtime or a support library go to the
	// root. Matched against the name without its binary extension, so the
	// "lib" of ".dylib" does not count.
	rootBinaryPattern = regexp.MustCompile(`[Aa][Mm][Xx]|[Ll][Ii][Bb]`)
)

// Classify decides the role of a file from its name and its path inside the
// archive it came from. archivePath is empty for standalone assets.
//
// Order: .inc is an include; non-binaries are ignored; an amx/lib stem is a
// root binary; a directory segment containing "components" makes a component
// binary; one containing "plugin" makes a plugin binary; anything else is an
// unclassified binary.
func Classify(name, archivePath string) Kind {
	if includePattern.MatchString(name) {
		return KindInclude
	}
	if !binaryPattern.MatchString(name) {
		return KindIgnored
	}
	if rootBinaryPattern.MatchString(binaryPattern.ReplaceAllString(name, "")) {
		return KindRootBinary
	}

	dirs := dirSegments(archivePath)
	for _, seg := range dirs {
		if strings.Contains(seg, "components") {
			return KindComponentBinary
		}
	}
	for _, seg := range dirs {
		if strings.Contains(seg, "plugin") {
			return KindPluginBinary
		}
	}
	return KindBinary
}

// dirSegments returns the lowercased directory parts of a slash or
// backslash separated path, without the file name.
func dirSegments(p string) []string {
	if p == "" {
		return nil
	}
	parts := strings.FieldsFunc(strings.ToLower(p), func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(parts) == 0 {
		return nil
	}
	return parts[:len(parts)-1]
}

// Format is an archive format recognised by name.
type Format int

const (
	FormatNone Format = iota
	FormatZip
	FormatTarGz
	FormatRar
)

// FormatOf returns the archive format of a file name.
func FormatOf(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".rar"):
		return FormatRar
	}
	return FormatNone
}

// IsArchive reports whether name has an archive extension.
func IsArchive(name string) bool {
	return FormatOf(name) != FormatNone
}
