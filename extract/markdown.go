package extract

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxMarkdownTitleLength = 100

var (
	atxHeading = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+)$`)

	// markdownRules run in order; later rules assume earlier ones already
	// removed code fences and images.
	markdownRules = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile("(?s)```.*?```"), ""},
		{regexp.MustCompile("`([^`\n]+)`"), "$1"},
		{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},
		{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
		{regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`), "$1"},
		{regexp.MustCompile(`_{1,3}([^_\n]+)_{1,3}`), "$1"},
		{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
		{regexp.MustCompile(`(?m)^>\s*`), ""},
		{regexp.MustCompile(`(?m)^[-*+]\s+`), ""},
		{regexp.MustCompile(`(?m)^\d+\.\s+`), ""},
		{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},
	}
)

type frontmatter struct {
	Title string `yaml:"title"`
}

// splitFrontmatter separates a leading YAML block delimited by "---" lines.
// Text without a well-formed block is returned unchanged.
func splitFrontmatter(raw string) (frontmatter, string) {
	var fm frontmatter
	text := strings.TrimPrefix(raw, "\ufeff")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return fm, raw
	}
	rest := text[strings.Index(text, "\n")+1:]

	end := -1
	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		if strings.TrimRight(line, "\r\n") == "---" {
			end = offset
			break
		}
		offset += len(line)
	}
	if end < 0 {
		return fm, raw
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil || meta == nil {
		return fm, raw
	}
	if t, ok := meta["title"].(string); ok {
		fm.Title = strings.TrimSpace(t)
	}

	body := rest[end:]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return fm, body
}

func markdownTitle(body string, fm frontmatter, sourceURL string) string {
	if m := atxHeading.FindStringSubmatch(body); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	if fm.Title != "" {
		return fm.Title
	}
	if line := firstLine(body); line != "" {
		return Truncate(line, maxMarkdownTitleLength)
	}
	return sourceURL
}

// stripMarkdown removes markdown syntax while keeping readable text.
func stripMarkdown(s string) string {
	for _, r := range markdownRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

func extractMarkdown(raw, sourceURL string) Result {
	fm, body := splitFrontmatter(raw)
	return Result{
		Title:     markdownTitle(body, fm, sourceURL),
		CleanText: stripMarkdown(body),
	}
}
