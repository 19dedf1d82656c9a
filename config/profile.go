package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docutag/curator/models"
)

// Profile is a curation context read from a YAML file:
//
//	interests: [distributed systems, go]
//	org_themes: [observability, developer tooling]
//	tag_vocabulary: [go, postgres, tracing]
type Profile struct {
	cc models.CurationContext
}

// LoadProfile parses the YAML profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile parses a YAML profile document.
func ParseProfile(data []byte) (*Profile, error) {
	var cc models.CurationContext
	if err := yaml.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	cc.Interests = compact(cc.Interests)
	cc.OrgThemes = compact(cc.OrgThemes)
	cc.TagVocabulary = compact(cc.TagVocabulary)
	return &Profile{cc: cc}, nil
}

// CurationContext returns a copy of the profile.
func (p *Profile) CurationContext(_ context.Context) (models.CurationContext, error) {
	return models.CurationContext{
		Interests:     append([]string(nil), p.cc.Interests...),
		OrgThemes:     append([]string(nil), p.cc.OrgThemes...),
		TagVocabulary: append([]string(nil), p.cc.TagVocabulary...),
	}, nil
}

// compact drops blank entries and repeats, keeping first-seen order.
func compact(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
