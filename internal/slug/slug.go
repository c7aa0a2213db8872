// Package slug derives URL-safe slugs from titles.
package slug

import (
	"regexp"
	"strings"

	"github.com/starford/guidesmith/internal/checksum"
)

var (
	specialRe = regexp.MustCompile(`[^\w\s-]`)
	sepRe     = regexp.MustCompile(`[\s_-]+`)
	edgeRe    = regexp.MustCompile(`^-+|-+$`)
)

// Make lowercases text, drops characters other than ASCII letters, digits,
// whitespace, underscores and hyphens, and collapses separator runs into a
// single hyphen. The result may be empty.
func Make(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = specialRe.ReplaceAllString(s, "")
	s = sepRe.ReplaceAllString(s, "-")
	return edgeRe.ReplaceAllString(s, "")
}

// FromTitle is Make with a deterministic fallback for titles that contain
// nothing sluggable, so a guide always has a slug.
func FromTitle(title string) string {
	if s := Make(title); s != "" {
		return s
	}
	return "guide-" + checksum.Short(title)
}
