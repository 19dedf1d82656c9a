package pagination

import (
	"context"
	"fmt"
	"math"

	"github.com/docutag/curator/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Source runs a page query against a record store. Rows must come back in the
// view's order.
type Source interface {
	Scan(ctx context.Context, q Query) ([]models.Item, error)
}

// Request asks for one page of a view.
type Request struct {
	View      View
	Cursor    string
	Limit     int
	Threshold *float64
}

// Page is one page of results. NextCursor is nil on the last page.
type Page struct {
	Items      []models.Item `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// BuildQuery validates req and returns the page query, which fetches one row
// more than the page size.
func BuildQuery(req Request) (Query, error) {
	view := req.View
	if view == "" {
		view = ViewBrowse
	}
	if _, err := ParseView(string(view)); err != nil {
		return Query{}, err
	}

	q := Query{View: view, Limit: ClampLimit(req.Limit) + 1}
	switch view {
	case ViewBrowse:
		q.Status = models.StatusActive
	case ViewOrg:
		threshold := DefaultOrgThreshold
		if req.Threshold != nil {
			if t := *req.Threshold; math.IsNaN(t) || t < 0 || t > 1 {
				return Query{}, ErrInvalidThreshold
			}
			threshold = *req.Threshold
		}
		q.Status = models.StatusActive
		q.MinOrgScore = &threshold
	}

	if req.Cursor != "" {
		c, err := DecodeCursor(req.Cursor, view)
		if err != nil {
			return Query{}, err
		}
		q.After = c
	}
	return q, nil
}

// List fetches one page. The look-ahead row, if present, is dropped and the
// next cursor is taken from the last row kept.
func List(ctx context.Context, src Source, req Request) (Page, error) {
	q, err := BuildQuery(req)
	if err != nil {
		return Page{}, err
	}

	rows, err := src.Scan(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("failed to scan %s view: %w", q.View, err)
	}

	limit := q.Limit - 1
	page := Page{Items: rows}
	if page.Items == nil {
		page.Items = []models.Item{}
	}
	if len(rows) > limit {
		page.Items = rows[:limit]
		token, err := EncodeCursor(CursorFor(q.View, page.Items[limit-1]))
		if err != nil {
			return Page{}, err
		}
		page.NextCursor = &token
	}
	return page, nil
}
