package db

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
)

var itemColumns = []string{
	"id", "source", "url", "url_hash", "title", "summary_short", "summary_long", "tags",
	"personal_score", "org_score", "novelty", "base_score", "status", "pin", "content_path",
	"created_at", "processed_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		it        models.Item
		tags      pq.StringArray
		status    string
		processed sql.NullTime
	)
	err := row.Scan(
		&it.ID, &it.Source, &it.URL, &it.URLHash, &it.Title, &it.SummaryShort, &it.SummaryLong, &tags,
		&it.PersonalScore, &it.OrgScore, &it.Novelty, &it.BaseScore, &status, &it.Pin, &it.ContentPath,
		&it.CreatedAt, &processed,
	)
	if err != nil {
		return nil, err
	}

	it.Tags = []string(tags)
	if it.Tags == nil {
		it.Tags = []string{}
	}
	it.Status = models.Status(status)
	it.CreatedAt = it.CreatedAt.UTC()
	if processed.Valid {
		t := processed.Time.UTC()
		it.ProcessedAt = &t
	}
	return &it, nil
}

func insertItemQuery(it *models.Item) sq.InsertBuilder {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return psql.Insert("items").Columns(itemColumns...).Values(
		it.ID, it.Source, it.URL, it.URLHash, it.Title, it.SummaryShort, it.SummaryLong, pq.Array(tags),
		it.PersonalScore, it.OrgScore, it.Novelty, it.BaseScore, string(it.Status), it.Pin, it.ContentPath,
		it.CreatedAt, it.ProcessedAt,
	)
}

func byIDsQuery(ids []string) sq.SelectBuilder {
	return psql.Select(itemColumns...).From("items").Where("id = ANY(?)", pq.Array(ids))
}

// pageQuery translates a page plan into SQL. Each view's seek predicate
// mirrors its ORDER BY so that resumption neither skips nor repeats rows.
func pageQuery(q pagination.Query) sq.SelectBuilder {
	b := psql.Select(itemColumns...).From("items")

	if q.Status != "" {
		b = b.Where(sq.Eq{"status": string(q.Status)})
	}
	if q.MinOrgScore != nil {
		b = b.Where(sq.GtOrEq{"org_score": *q.MinOrgScore})
	}

	switch c := q.After.(type) {
	case pagination.BrowseCursor:
		b = b.Where(sq.Or{
			sq.Lt{"pin": c.Pin},
			sq.And{sq.Eq{"pin": c.Pin}, sq.Lt{"base_score": c.BaseScore}},
			sq.And{sq.Eq{"pin": c.Pin}, sq.Eq{"base_score": c.BaseScore}, sq.Lt{"created_at": c.CreatedAt}},
		})
	case pagination.RecentCursor:
		b = b.Where(sq.Lt{"created_at": c.CreatedAt})
	case pagination.OrgCursor:
		b = b.Where(sq.Or{
			sq.Lt{"org_score": c.OrgScore},
			sq.And{sq.Eq{"org_score": c.OrgScore}, sq.Lt{"created_at": c.CreatedAt}},
		})
	}

	switch q.View {
	case pagination.ViewRecent:
		b = b.OrderBy("created_at DESC")
	case pagination.ViewOrg:
		b = b.OrderBy("org_score DESC", "created_at DESC")
	default:
		b = b.OrderBy("pin DESC", "base_score DESC", "created_at DESC")
	}

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}
