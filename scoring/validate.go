package scoring

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/docutag/curator/extract"
	"github.com/docutag/curator/models"
)

const (
	// DefaultScore replaces missing or mistyped relevance scores.
	DefaultScore = 0.5

	maxSummaryShort = 80
	maxSummaryLong  = 400
	maxTags         = 5
)

// markup is stripped from every string the model produces.
var markup = bluemonday.StrictPolicy()

// Fallback is the result used whenever the model output cannot be used.
func Fallback(ic models.IngestContext) models.ScoringResult {
	return models.ScoringResult{
		Title:         ic.Title,
		SummaryShort:  extract.Truncate(ic.CleanText, maxSummaryShort),
		SummaryLong:   extract.Truncate(ic.CleanText, maxSummaryLong),
		Tags:          []string{},
		PersonalScore: DefaultScore,
		OrgScore:      DefaultScore,
	}
}

// FindJSONObject returns the first balanced {...} span in s. Braces inside
// JSON strings are ignored.
func FindJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Parse turns a raw model response into a result. It never fails: anything
// unusable yields Fallback(ic).
func Parse(response string, ic models.IngestContext) (models.ScoringResult, bool) {
	obj, ok := FindJSONObject(response)
	if !ok {
		return Fallback(ic), false
	}
	var raw any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Fallback(ic), false
	}
	return Validate(raw, ic), true
}

// Validate maps an arbitrary decoded JSON value to a result, defaulting each
// field independently.
func Validate(raw any, ic models.IngestContext) models.ScoringResult {
	res := Fallback(ic)
	fields, ok := raw.(map[string]any)
	if !ok {
		return res
	}

	if s, ok := cleanString(fields["title"]); ok && s != "" {
		res.Title = s
	}
	if s, ok := cleanString(fields["summary_short"]); ok {
		res.SummaryShort = extract.Truncate(s, maxSummaryShort)
	}
	if s, ok := cleanString(fields["summary_long"]); ok {
		res.SummaryLong = extract.Truncate(s, maxSummaryLong)
	}
	if list, ok := fields["tags"].([]any); ok {
		for _, v := range list {
			if len(res.Tags) == maxTags {
				break
			}
			if tag, ok := cleanString(v); ok && tag != "" {
				res.Tags = append(res.Tags, tag)
			}
		}
	}
	res.PersonalScore = score(fields["personal_score"])
	res.OrgScore = score(fields["org_score"])
	return res
}

func cleanString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(html.UnescapeString(markup.Sanitize(s))), true
}

func score(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return DefaultScore
	}
	return models.ClampScore(f)
}
