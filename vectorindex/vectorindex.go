// Package vectorindex is a cosine similarity index stored in PostgreSQL with
// the pgvector extension.
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/docutag/curator/models"
)

// Index stores one embedding per item id.
type Index struct {
	conn       *sql.DB
	dimensions int
}

// New wraps conn. dimensions must match the embedding model.
func New(conn *sql.DB, dimensions int) *Index {
	return &Index{conn: conn, dimensions: dimensions}
}

// EnsureSchema creates the extension, table and HNSW index if missing.
func (x *Index) EnsureSchema(ctx context.Context) error {
	if x.dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", x.dimensions)
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS item_embeddings (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, x.dimensions),
		"CREATE INDEX IF NOT EXISTS idx_item_embeddings_hnsw ON item_embeddings USING hnsw (embedding vector_cosine_ops)",
	}
	for _, stmt := range stmts {
		if _, err := x.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare vector schema: %w", err)
		}
	}
	return nil
}

// Upsert stores or replaces the embedding of id.
func (x *Index) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != x.dimensions {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(vector), x.dimensions)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal vector metadata: %w", err)
	}

	_, err = x.conn.ExecContext(ctx, upsertSQL, id, pgvector.NewVector(vector), string(meta))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Query returns the topK nearest embeddings with similarity 1 - cosine
// distance, best first.
func (x *Index) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return []models.Match{}, nil
	}
	rows, err := x.conn.QueryContext(ctx, querySQL, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		var m models.Match
		var distance float64
		if err := rows.Scan(&m.ID, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = Similarity(distance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const upsertSQL = `
	INSERT INTO item_embeddings (id, embedding, metadata, updated_at)
	VALUES ($1, $2, $3::jsonb, NOW())
	ON CONFLICT (id) DO UPDATE SET
		embedding = excluded.embedding,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at
`

const querySQL = `
	SELECT id, embedding <=> $1 AS distance
	FROM item_embeddings
	ORDER BY embedding <=> $1
	LIMIT $2
`

// Similarity converts a pgvector cosine distance in [0,2] to a similarity.
func Similarity(distance float64) float64 {
	return 1 - distance
}
