package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
)

var cols = strings.Join(itemColumns, ", ")

func TestPageQuery(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC)
	threshold := 0.6

	tests := []struct {
		name     string
		query    pagination.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "browse first page",
			query:    pagination.Query{View: pagination.ViewBrowse, Status: models.StatusActive, Limit: 21},
			wantSQL:  "SELECT " + cols + " FROM items WHERE status = $1 ORDER BY pin DESC, base_score DESC, created_at DESC LIMIT 21",
			wantArgs: []any{"active"},
		},
		{
			name: "browse with cursor",
			query: pagination.Query{
				View:   pagination.ViewBrowse,
				Status: models.StatusActive,
				After:  pagination.BrowseCursor{Pin: 1, BaseScore: 0.72, CreatedAt: ts},
				Limit:  3,
			},
			wantSQL: "SELECT " + cols + " FROM items WHERE status = $1 AND " +
				"(pin < $2 OR (pin = $3 AND base_score < $4) OR (pin = $5 AND base_score = $6 AND created_at < $7)) " +
				"ORDER BY pin DESC, base_score DESC, created_at DESC LIMIT 3",
			wantArgs: []any{"active", 1, 1, 0.72, 1, 0.72, ts},
		},
		{
			name:     "recent with cursor",
			query:    pagination.Query{View: pagination.ViewRecent, After: pagination.RecentCursor{CreatedAt: ts}, Limit: 11},
			wantSQL:  "SELECT " + cols + " FROM items WHERE created_at < $1 ORDER BY created_at DESC LIMIT 11",
			wantArgs: []any{ts},
		},
		{
			name: "org with cursor",
			query: pagination.Query{
				View:        pagination.ViewOrg,
				Status:      models.StatusActive,
				MinOrgScore: &threshold,
				After:       pagination.OrgCursor{OrgScore: 0.8, CreatedAt: ts},
				Limit:       6,
			},
			wantSQL: "SELECT " + cols + " FROM items WHERE status = $1 AND org_score >= $2 AND " +
				"(org_score < $3 OR (org_score = $4 AND created_at < $5)) " +
				"ORDER BY org_score DESC, created_at DESC LIMIT 6",
			wantArgs: []any{"active", 0.6, 0.8, 0.8, ts},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := pageQuery(tt.query).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertItemQuery(t *testing.T) {
	item := &models.Item{ID: "abc", URLHash: "abc", Status: models.StatusActive}
	sql, args, err := insertItemQuery(item).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO items ("+strings.Join(itemColumns, ",")+") VALUES ($1,"), sql)
	assert.Len(t, args, len(itemColumns))

	valuer, ok := args[7].(driver.Valuer)
	require.True(t, ok)
	tags, err := valuer.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", tags, "nil tags must be stored as an empty array")
}

func TestByIDsQuery(t *testing.T) {
	sql, args, err := byIDsQuery([]string{"a", "b"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+cols+" FROM items WHERE id = ANY($1)", sql)
	assert.Len(t, args, 1)
}

func TestMigrationsOrdered(t *testing.T) {
	ms := NewMigrator(nil, nil).migrations
	require.NoError(t, checkMigrations(ms))
	for _, m := range ms {
		assert.NotEmpty(t, strings.TrimSpace(m.Up), m.Name)
		assert.NotEmpty(t, strings.TrimSpace(m.Down), m.Name)
	}
}

func TestSortMigrations(t *testing.T) {
	in := []Migration{{Version: 3, Name: "c"}, {Version: 1, Name: "a"}, {Version: 2, Name: "b"}}
	sorted := sortMigrations(in)
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].Version, sorted[1].Version, sorted[2].Version})
	assert.Equal(t, 3, in[0].Version, "input must not be reordered")
}

func TestCheckMigrations(t *testing.T) {
	step := func(v int) Migration {
		return Migration{Version: v, Name: fmt.Sprint("m", v), Up: "SELECT 1", Down: "SELECT 1"}
	}
	tests := []struct {
		name    string
		ms      []Migration
		wantErr string
	}{
		{"empty", nil, ""},
		{"contiguous", []Migration{step(1), step(2), step(3)}, ""},
		{"gap", []Migration{step(1), step(3)}, "has version 3, want 2"},
		{"duplicate", []Migration{step(1), step(1)}, "has version 1, want 2"},
		{"starts late", []Migration{step(2)}, "has version 2, want 1"},
		{"missing down", []Migration{{Version: 1, Name: "m1", Up: "SELECT 1"}}, "missing its up or down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMigrations(tt.ms)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatusOf(t *testing.T) {
	ms := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	status := statusOf(ms, map[int]time.Time{1: at, 3: at.Add(time.Hour)})
	require.Len(t, status, 3)
	assert.True(t, status[0].Applied)
	assert.Equal(t, at, *status[0].AppliedAt)
	assert.False(t, status[1].Applied)
	assert.Nil(t, status[1].AppliedAt)
	assert.True(t, status[2].Applied)
	assert.Equal(t, at.Add(time.Hour), *status[2].AppliedAt)
}

// openTestDB connects to TEST_DATABASE_DSN or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping PostgreSQL integration test")
	}
	db, err := New(Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.conn.Exec("DELETE FROM items")
		db.Close()
	})
	_, err = db.conn.Exec("DELETE FROM items")
	require.NoError(t, err)
	return db
}

func TestIntegrationItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("item-%d", i)
		require.NoError(t, db.Insert(ctx, &models.Item{
			ID:        id,
			Source:    models.DefaultSource,
			URL:       "https://example.com/" + id,
			URLHash:   id,
			Tags:      []string{"t"},
			BaseScore: float64(i%3) / 3,
			OrgScore:  0.7,
			Status:    models.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	err := db.Insert(ctx, &models.Item{ID: "other", URLHash: "item-0", Status: models.StatusActive, CreatedAt: base})
	assert.True(t, errors.Is(err, models.ErrDuplicate))

	got, err := db.GetByURLHash(ctx, "item-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, got.Tags)
	assert.True(t, got.CreatedAt.Equal(base.Add(3*time.Second)))

	_, err = db.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, db.UpdatePin(ctx, "item-1", 1))
	require.NoError(t, db.UpdateStatus(ctx, "item-2", models.StatusArchived))
	require.NoError(t, db.UpdateStatus(ctx, "item-2", models.StatusArchived))
	assert.ErrorIs(t, db.UpdatePin(ctx, "missing", 1), models.ErrNotFound)

	var ids []string
	cursor := ""
	for {
		page, err := pagination.List(ctx, db, pagination.Request{View: pagination.ViewBrowse, Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Equal(t, []string{"item-1", "item-5", "item-4", "item-6", "item-3", "item-0"}, ids)

	byIDs, err := db.GetByIDs(ctx, []string{"item-0", "item-6", "nope"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}

func TestIntegrationMigrator(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db.DB(), nil)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "New already migrated")

	last, err := m.Down(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(postgresMigrations), last.Version)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, len(postgresMigrations))
	assert.False(t, status[len(status)-1].Applied)
	assert.True(t, status[0].Applied)
	require.NotNil(t, status[0].AppliedAt)

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
