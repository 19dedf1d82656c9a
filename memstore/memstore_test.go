package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
	"github.com/docutag/curator/storage"
)

func TestItemsUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewItems()

	require.NoError(t, s.Insert(ctx, &models.Item{ID: "a", URLHash: "ha"}))
	assert.ErrorIs(t, s.Insert(ctx, &models.Item{ID: "a", URLHash: "hb"}), models.ErrDuplicate)
	assert.ErrorIs(t, s.Insert(ctx, &models.Item{ID: "b", URLHash: "ha"}), models.ErrDuplicate)

	got, err := s.GetByURLHash(ctx, "ha")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = s.GetByURLHash(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestItemsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewItems()
	require.NoError(t, s.Insert(ctx, &models.Item{ID: "a", URLHash: "ha", Tags: []string{"x"}}))

	got, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	again, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Tags)
	assert.Empty(t, again.Title)
}

func TestItemsUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewItems()
	require.NoError(t, s.Insert(ctx, &models.Item{ID: "a", URLHash: "ha", Status: models.StatusActive}))

	require.NoError(t, s.UpdateStatus(ctx, "a", models.StatusMuted))
	require.NoError(t, s.UpdateStatus(ctx, "a", models.StatusMuted))
	require.NoError(t, s.UpdatePin(ctx, "a", 1))

	got, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMuted, got.Status)
	assert.Equal(t, 1, got.Pin)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "zzz", models.StatusArchived), models.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePin(ctx, "zzz", 0), models.ErrNotFound)
}

func TestItemsScanWithPagination(t *testing.T) {
	ctx := context.Background()
	s := NewItems()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		status := models.StatusActive
		if id == "c" {
			status = models.StatusArchived
		}
		require.NoError(t, s.Insert(ctx, &models.Item{
			ID:        id,
			URLHash:   "h" + id,
			Status:    status,
			BaseScore: 0.5,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	var ids []string
	cursor := ""
	for {
		page, err := pagination.List(ctx, s, pagination.Request{View: pagination.ViewBrowse, Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Equal(t, []string{"e", "d", "b", "a"}, ids)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestItemsGetByIDs(t *testing.T) {
	ctx := context.Background()
	s := NewItems()
	require.NoError(t, s.Insert(ctx, &models.Item{ID: "a", URLHash: "ha"}))
	require.NoError(t, s.Insert(ctx, &models.Item{ID: "b", URLHash: "hb"}))

	got, err := s.GetByIDs(ctx, []string{"b", "missing", "a"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	b := NewBlobs()

	require.NoError(t, b.PutContent(ctx, "content/2025/01/a.txt.gz", "hello", map[string]string{"url": "u"}))
	got, err := b.GetContent(ctx, "content/2025/01/a.txt.gz")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	meta, ok := b.Metadata("content/2025/01/a.txt.gz")
	require.True(t, ok)
	assert.Equal(t, "u", meta["url"])
	assert.Equal(t, 1, b.Len())

	_, err = b.GetContent(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()
	x := NewIndex()
	require.NoError(t, x.Upsert(ctx, "same", []float32{1, 0}, nil))
	require.NoError(t, x.Upsert(ctx, "diag", []float32{1, 1}, nil))
	require.NoError(t, x.Upsert(ctx, "orth", []float32{0, 1}, nil))

	matches, err := x.Query(ctx, []float32{2, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "same", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "diag", matches[1].ID)
	assert.InDelta(t, 0.7071, matches[1].Score, 1e-4)

	_, err = x.Query(ctx, []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, x.Upsert(ctx, "same", []float32{0, 1}, nil))
	assert.Equal(t, 3, x.Len())
}
