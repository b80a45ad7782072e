// Package fileutil holds small filesystem naming helpers shared by the
// storage and download layers.
package fileutil

import (
	"regexp"
	"strings"
)

const maxNameLength = 200

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// SanitizeName makes a string safe to use as a file or directory name on
// both Windows and Unix filesystems. Invalid characters are removed, runs
// of whitespace collapse to a single space, trailing dots and spaces are
// trimmed, and the result is capped at 200 characters.
func SanitizeName(name string) string {
	name = invalidChars.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.Trim(name, ". ")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}
