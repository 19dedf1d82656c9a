// Package extract turns raw HTML, Markdown and plain-text documents into a
// title and a whitespace-normalized clean text.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength caps the clean text, counted in characters.
const MaxTextLength = 30720

// ErrUnsupportedContentType is returned for content types outside the
// HTML, Markdown and plain-text families.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Format is a supported document family.
type Format int

const (
	FormatHTML Format = iota + 1
	FormatMarkdown
	FormatPlain
)

func (f Format) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "markdown"
	case FormatPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// Result is the outcome of an extraction.
type Result struct {
	Title     string
	CleanText string
	Format    Format
}

// DetectFormat maps a declared Content-Type header to a format. Parameters
// such as charset are ignored.
func DetectFormat(contentType string) (Format, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"):
		return FormatHTML, nil
	case strings.Contains(ct, "text/markdown"), strings.Contains(ct, "text/x-markdown"):
		return FormatMarkdown, nil
	case strings.Contains(ct, "text/plain"):
		return FormatPlain, nil
	}
	if strings.TrimSpace(ct) == "" {
		return 0, fmt.Errorf("%w: missing content type", ErrUnsupportedContentType)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
}

// Extract dispatches raw on its declared content type. The source URL is the
// title of last resort.
func Extract(raw, contentType, sourceURL string) (Result, error) {
	format, err := DetectFormat(contentType)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch format {
	case FormatHTML:
		res, err = extractHTML(raw, sourceURL)
	case FormatMarkdown:
		res = extractMarkdown(raw, sourceURL)
	case FormatPlain:
		res = extractPlain(raw, sourceURL)
	}
	if err != nil {
		return Result{}, err
	}
	res.Format = format
	res.CleanText = Truncate(collapseWhitespace(res.CleanText), MaxTextLength)
	return res, nil
}

// collapseWhitespace replaces every whitespace run with one space and trims.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
