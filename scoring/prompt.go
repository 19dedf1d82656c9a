package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docutag/curator/extract"
	"github.com/docutag/curator/llm"
	"github.com/docutag/curator/models"
)

const (
	systemPrompt = "You are a knowledge curation assistant."

	// excerptLength is how much clean text the model sees.
	excerptLength = 3000
	maxOrgThemes  = 20
	maxTagHints   = 50
)

const userPromptTemplate = `Analyze the following article and return a JSON object.

User interests: %s
Organization themes: %s

Article URL: %s
Article title: %s
Article content (first 3000 chars):
---
%s
---

Return ONLY a JSON object with these fields:
{
  "title": "article title (use original if adequate, improve if needed)",
  "summary_short": "one-line summary, max 80 characters",
  "summary_long": "detailed summary, max 400 characters",
  "tags": ["tag1", "tag2", ...],
  "personal_score": 0.0-1.0,
  "org_score": 0.0-1.0
}

Preferred tags: %s`

// BuildMessages renders the scoring prompt for one document.
func BuildMessages(ic models.IngestContext, cc models.CurationContext) []llm.Message {
	interests := cc.Interests
	if interests == nil {
		interests = []string{}
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		interestsJSON = []byte("[]")
	}

	user := fmt.Sprintf(userPromptTemplate,
		interestsJSON,
		strings.Join(head(cc.OrgThemes, maxOrgThemes), ", "),
		ic.URL,
		ic.Title,
		extract.Truncate(ic.CleanText, excerptLength),
		strings.Join(head(cc.TagVocabulary, maxTagHints), ", "),
	)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: user},
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
