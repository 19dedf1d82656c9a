package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docutag/curator/models"
)

const (
	maxOrgThemes = 20
	maxTags      = 50
)

// CurationContext loads the interests, the top organization themes by weight
// and the most used tags.
func (db *DB) CurationContext(ctx context.Context) (models.CurationContext, error) {
	cc := models.CurationContext{Interests: []string{}}

	var interests string
	err := db.conn.QueryRowContext(ctx, "SELECT interests FROM user_profile WHERE id = 1").Scan(&interests)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return cc, fmt.Errorf("failed to load interests: %w", err)
	default:
		if err := json.Unmarshal([]byte(interests), &cc.Interests); err != nil {
			return cc, fmt.Errorf("failed to parse interests: %w", err)
		}
	}

	cc.OrgThemes, err = db.column(ctx, "SELECT theme FROM org_themes ORDER BY weight DESC, theme LIMIT $1", maxOrgThemes)
	if err != nil {
		return cc, fmt.Errorf("failed to load org themes: %w", err)
	}
	cc.TagVocabulary, err = db.column(ctx, "SELECT tag FROM tag_vocabulary ORDER BY usage_count DESC, tag LIMIT $1", maxTags)
	if err != nil {
		return cc, fmt.Errorf("failed to load tag vocabulary: %w", err)
	}
	return cc, nil
}

func (db *DB) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceCurationContext overwrites the profile tables. Themes and tags are
// weighted by their position, first is heaviest.
func (db *DB) ReplaceCurationContext(ctx context.Context, cc models.CurationContext) error {
	interests := cc.Interests
	if interests == nil {
		interests = []string{}
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("failed to marshal interests: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profile (id, interests) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET interests = excluded.interests
	`, string(interestsJSON)); err != nil {
		return fmt.Errorf("failed to save interests: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM org_themes"); err != nil {
		return fmt.Errorf("failed to clear org themes: %w", err)
	}
	for i, theme := range cc.OrgThemes {
		weight := float64(len(cc.OrgThemes) - i)
		if _, err := tx.ExecContext(ctx, "INSERT INTO org_themes (theme, weight) VALUES ($1, $2) ON CONFLICT (theme) DO NOTHING", theme, weight); err != nil {
			return fmt.Errorf("failed to save org theme %q: %w", theme, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tag_vocabulary"); err != nil {
		return fmt.Errorf("failed to clear tag vocabulary: %w", err)
	}
	for i, tag := range cc.TagVocabulary {
		if _, err := tx.ExecContext(ctx, "INSERT INTO tag_vocabulary (tag, usage_count) VALUES ($1, $2) ON CONFLICT (tag) DO NOTHING", tag, len(cc.TagVocabulary)-i); err != nil {
			return fmt.Errorf("failed to save tag %q: %w", tag, err)
		}
	}

	return tx.Commit()
}
