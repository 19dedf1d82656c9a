package pagination

import (
	"github.com/docutag/curator/models"
)

// Query is a storage-neutral plan for fetching one page.
type Query struct {
	View View
	// Status restricts rows to one lifecycle state; empty means any.
	Status models.Status
	// MinOrgScore, when set, keeps rows with org_score >= *MinOrgScore.
	MinOrgScore *float64
	// After is the resumption point; nil starts from the top.
	After Cursor
	// Limit is the number of rows to fetch, already including the extra
	// look-ahead row.
	Limit int
}

// Match reports whether it passes the query's filter and cursor.
func (q Query) Match(it models.Item) bool {
	if q.Status != "" && it.Status != q.Status {
		return false
	}
	if q.MinOrgScore != nil && it.OrgScore < *q.MinOrgScore {
		return false
	}
	if q.After != nil && !Follows(q.After, it) {
		return false
	}
	return true
}
