// Package slug turns item titles into ASCII file names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds a generated slug.
const MaxLength = 80

var (
	separators = regexp.MustCompile(`[\s_/.]+`)
	disallowed = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphens    = regexp.MustCompile(`-{2,}`)
)

// Generate lowercases s, folds accented letters to ASCII and keeps only
// [a-z0-9-]. It may return "".
func Generate(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	s = fold(s)
	s = separators.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = hyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Filename returns "<slug>.<ext>" for title, using fallback when the title
// has no usable characters.
func Filename(title, fallback, ext string) string {
	name := Generate(title)
	if name == "" {
		name = Generate(fallback)
	}
	if name == "" {
		name = "content"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// fold strips combining marks after canonical decomposition, so "é" becomes "e".
func fold(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
