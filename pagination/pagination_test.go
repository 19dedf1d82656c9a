package pagination

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docutag/curator/models"
)

// sliceSource evaluates queries over an in-memory snapshot.
type sliceSource struct {
	items   []models.Item
	queries []Query
}

func (s *sliceSource) Scan(_ context.Context, q Query) ([]models.Item, error) {
	s.queries = append(s.queries, q)
	var out []models.Item
	for _, it := range s.items {
		if q.Match(it) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(q.View, out[i], out[j]) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func item(id string, pin int, base, org float64, minutes int, status models.Status) models.Item {
	return models.Item{
		ID:        id,
		Pin:       pin,
		BaseScore: base,
		OrgScore:  org,
		Status:    status,
		CreatedAt: t0.Add(time.Duration(minutes) * time.Minute),
	}
}

func fixture() []models.Item {
	return []models.Item{
		item("a", 0, 0.9, 0.9, 1, models.StatusActive),
		item("b", 1, 0.2, 0.1, 2, models.StatusActive),
		item("c", 0, 0.5, 0.7, 3, models.StatusActive),
		item("d", 0, 0.5, 0.7, 4, models.StatusActive),
		item("e", 0, 0.5, 0.6, 5, models.StatusMuted),
		item("f", 1, 0.8, 0.65, 6, models.StatusActive),
		item("g", 0, 0.1, 0.95, 7, models.StatusArchived),
		item("h", 0, 0.5, 0.2, 8, models.StatusActive),
		item("i", 0, 0.3, 0.6, 9, models.StatusActive),
	}
}

func collect(t *testing.T, src Source, view View, limit int, threshold *float64) []string {
	t.Helper()
	var ids []string
	cursor := ""
	for pages := 0; pages < 100; pages++ {
		page, err := List(context.Background(), src, Request{View: view, Cursor: cursor, Limit: limit, Threshold: threshold})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), limit)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if page.NextCursor == nil {
			return ids
		}
		cursor = *page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestViewsOrdering(t *testing.T) {
	src := &sliceSource{items: fixture()}
	low := 0.5

	tests := []struct {
		view      View
		threshold *float64
		want      []string
	}{
		{ViewBrowse, nil, []string{"f", "b", "a", "h", "d", "c", "i"}},
		{ViewRecent, nil, []string{"i", "h", "g", "f", "e", "d", "c", "b", "a"}},
		{ViewOrg, nil, []string{"a", "d", "c", "f", "i"}},
		{ViewOrg, &low, []string{"a", "d", "c", "f", "i"}},
	}

	for _, tt := range tests {
		for _, limit := range []int{1, 2, 3, 4, 20} {
			t.Run(fmt.Sprintf("%s/limit=%d", tt.view, limit), func(t *testing.T) {
				assert.Equal(t, tt.want, collect(t, src, tt.view, limit, tt.threshold))
			})
		}
	}
}

func TestPaginationCompleteness(t *testing.T) {
	var items []models.Item
	for i := 0; i < 57; i++ {
		items = append(items, item(fmt.Sprintf("id%02d", i), i%5/4, float64(i%7)/10, float64(i%3)/2, i, models.StatusActive))
	}
	src := &sliceSource{items: items}

	all := collect(t, src, ViewBrowse, 1000, nil)
	require.Len(t, all, 57)

	for _, limit := range []int{1, 2, 5, 7, 56, 57, 100} {
		got := collect(t, src, ViewBrowse, limit, nil)
		assert.Equal(t, all, got, "limit %d", limit)

		seen := map[string]bool{}
		for _, id := range got {
			assert.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
	}
}

func TestTieBreakOnCreatedAt(t *testing.T) {
	src := &sliceSource{items: []models.Item{
		item("older", 0, 0.5, 0, 1, models.StatusActive),
		item("newer", 0, 0.5, 0, 2, models.StatusActive),
	}}

	first, err := List(context.Background(), src, Request{View: ViewBrowse, Limit: 1})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "newer", first.Items[0].ID)
	require.NotNil(t, first.NextCursor)

	second, err := List(context.Background(), src, Request{View: ViewBrowse, Limit: 1, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "older", second.Items[0].ID)
	assert.Nil(t, second.NextCursor)
}

func TestListFetchesOneExtraRow(t *testing.T) {
	src := &sliceSource{items: fixture()}

	page, err := List(context.Background(), src, Request{View: ViewRecent, Limit: 9})
	require.NoError(t, err)
	assert.Len(t, page.Items, 9)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, 10, src.queries[0].Limit)

	page, err = List(context.Background(), src, Request{View: ViewRecent, Limit: 8})
	require.NoError(t, err)
	assert.Len(t, page.Items, 8)
	assert.NotNil(t, page.NextCursor)
}

func TestListEmpty(t *testing.T) {
	page, err := List(context.Background(), &sliceSource{}, Request{View: ViewBrowse})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestBuildQuery(t *testing.T) {
	q, err := BuildQuery(Request{})
	require.NoError(t, err)
	assert.Equal(t, ViewBrowse, q.View)
	assert.Equal(t, models.StatusActive, q.Status)
	assert.Equal(t, DefaultLimit+1, q.Limit)
	assert.Nil(t, q.MinOrgScore)

	q, err = BuildQuery(Request{View: ViewOrg, Limit: 500})
	require.NoError(t, err)
	require.NotNil(t, q.MinOrgScore)
	assert.Equal(t, DefaultOrgThreshold, *q.MinOrgScore)
	assert.Equal(t, MaxLimit+1, q.Limit)

	q, err = BuildQuery(Request{View: ViewRecent})
	require.NoError(t, err)
	assert.Equal(t, models.Status(""), q.Status)

	_, err = BuildQuery(Request{View: "popular"})
	assert.ErrorIs(t, err, ErrUnknownView)

	for _, th := range []float64{0, 1} {
		q, err = BuildQuery(Request{View: ViewOrg, Threshold: &th})
		require.NoError(t, err)
		assert.Equal(t, th, *q.MinOrgScore)
	}
	for _, th := range []float64{5, -0.1, 1.01, math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err = BuildQuery(Request{View: ViewOrg, Threshold: &th})
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", th)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 5, 6, 7, 8, 9, 123456000, time.UTC)
	cursors := []Cursor{
		BrowseCursor{Pin: 1, BaseScore: 0.7200000000000001, CreatedAt: ts},
		RecentCursor{CreatedAt: ts},
		OrgCursor{OrgScore: 0.6, CreatedAt: ts},
	}
	for _, c := range cursors {
		token, err := EncodeCursor(c)
		require.NoError(t, err)
		got, err := DecodeCursor(token, c.View())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestCursorRejected(t *testing.T) {
	token, err := EncodeCursor(RecentCursor{CreatedAt: t0})
	require.NoError(t, err)

	_, err = DecodeCursor(token, ViewBrowse)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = List(context.Background(), &sliceSource{}, Request{View: ViewOrg, Cursor: token})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	for _, bad := range []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"v":99,"view":"recent","key":{"created_at":"2025-01-01T00:00:00Z"}}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"v":1,"view":"recent","key":{}}`)),
	} {
		_, err := DecodeCursor(bad, ViewRecent)
		assert.True(t, errors.Is(err, ErrInvalidCursor), "token %q: %v", bad, err)
	}
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewBrowse, v)

	v, err = ParseView("ORG")
	require.NoError(t, err)
	assert.Equal(t, ViewOrg, v)

	_, err = ParseView("top")
	assert.ErrorIs(t, err, ErrUnknownView)
}
