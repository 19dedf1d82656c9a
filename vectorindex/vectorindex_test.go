package vectorindex

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.0, Similarity(1))
	assert.Equal(t, -1.0, Similarity(2))
}

func TestUpsertRejectsWrongDimensions(t *testing.T) {
	x := New(nil, 3)
	err := x.Upsert(context.Background(), "a", []float32{1, 2}, nil)
	assert.Error(t, err)
}

func TestQueryZeroTopK(t *testing.T) {
	matches, err := New(nil, 3).Query(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEnsureSchemaRejectsZeroDimensions(t *testing.T) {
	assert.Error(t, New(nil, 0).EnsureSchema(context.Background()))
}

func TestIntegrationQuery(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping pgvector integration test")
	}
	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	x := New(conn, 3)
	require.NoError(t, x.EnsureSchema(ctx))
	_, err = conn.Exec("DELETE FROM item_embeddings")
	require.NoError(t, err)

	require.NoError(t, x.Upsert(ctx, "same", []float32{1, 0, 0}, map[string]string{"source": "manual"}))
	require.NoError(t, x.Upsert(ctx, "orth", []float32{0, 1, 0}, nil))

	matches, err := x.Query(ctx, []float32{2, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "same", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-6)
}
