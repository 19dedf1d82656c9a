package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps the database connection and provides data access methods
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	DSN string // PostgreSQL connection string
}

// Open connects without touching the schema.
func Open(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{conn: conn}, nil
}

// New connects and applies pending migrations.
func New(config Config) (*DB, error) {
	db, err := Open(config)
	if err != nil {
		return nil, err
	}
	if _, err := NewMigrator(db.conn, nil).Up(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection for metrics collection
func (db *DB) DB() *sql.DB {
	return db.conn
}

// Insert stores a new item. A clash on id or url_hash yields
// models.ErrDuplicate.
func (db *DB) Insert(ctx context.Context, item *models.Item) error {
	query, args, err := insertItemQuery(item).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", models.ErrDuplicate, item.ID)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetByID returns the item with id, or models.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*models.Item, error) {
	return db.getOne(ctx, sq.Eq{"id": id})
}

// GetByURLHash returns the item with the given canonical URL hash, or
// models.ErrNotFound.
func (db *DB) GetByURLHash(ctx context.Context, hash string) (*models.Item, error) {
	return db.getOne(ctx, sq.Eq{"url_hash": hash})
}

func (db *DB) getOne(ctx context.Context, pred sq.Sqlizer) (*models.Item, error) {
	query, args, err := psql.Select(itemColumns...).From("items").Where(pred).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	item, err := scanItem(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetByIDs returns the items found among ids, in no particular order.
func (db *DB) GetByIDs(ctx context.Context, ids []string) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}
	query, args, err := byIDsQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.queryItems(ctx, query, args)
}

// Scan runs a page query in the view's order.
func (db *DB) Scan(ctx context.Context, q pagination.Query) ([]models.Item, error) {
	query, args, err := pageQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}
	return db.queryItems(ctx, query, args)
}

func (db *DB) queryItems(ctx context.Context, query string, args []any) ([]models.Item, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// UpdateStatus overwrites the status of id.
func (db *DB) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return db.updateField(ctx, id, "status", string(status))
}

// UpdatePin overwrites the pin flag of id.
func (db *DB) UpdatePin(ctx context.Context, id string, pin int) error {
	return db.updateField(ctx, id, "pin", pin)
}

func (db *DB) updateField(ctx context.Context, id, column string, value any) error {
	query, args, err := psql.Update("items").Set(column, value).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of items.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}
