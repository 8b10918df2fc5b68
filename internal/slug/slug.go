// Package slug derives filesystem-safe story identifiers from titles.
package slug

import (
	"regexp"
	"strings"
)

// Separator joins the alphanumeric runs of a title
const Separator = "_"

var (
	nonAlnum  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	canonical = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)
)

// Derive lower-cases title, collapses every run of characters outside
// [A-Za-z0-9] into a single separator and trims separators at both ends.
// A title without any letter or digit yields "".
func Derive(title string) string {
	s := nonAlnum.ReplaceAllString(title, Separator)
	return strings.ToLower(strings.Trim(s, Separator))
}

// Valid reports whether s is a canonical slug, i.e. a fixed point of Derive.
// Lookups use it to reject keys that could escape the story namespace.
func Valid(s string) bool {
	return canonical.MatchString(s)
}
