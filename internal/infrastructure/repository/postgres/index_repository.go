package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// IndexRepository is the catalog of vector indexes created by any session.
type IndexRepository struct {
	db *sql.DB
}

func NewIndexRepository(db *sql.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *IndexRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api starts.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS vector_indexes (
	index_id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	pages INTEGER NOT NULL,
	chunks INTEGER NOT NULL,
	embed_model TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vector_indexes_filename ON vector_indexes(filename);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RecordIndex inserts the catalog row. An index id is written at most once.
func (r *IndexRepository) RecordIndex(ctx context.Context, record domain.IndexRecord) error {
	const query = `
INSERT INTO vector_indexes (index_id, filename, pages, chunks, embed_model, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (index_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, query,
		record.IndexID,
		record.Filename,
		record.Pages,
		record.Chunks,
		record.EmbedModel,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert index record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrIndexExists, "record index", errors.New(record.IndexID))
	}
	return nil
}

// ListIndexes returns catalog rows, newest first.
func (r *IndexRepository) ListIndexes(ctx context.Context, limit int) ([]domain.IndexRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT index_id, filename, pages, chunks, embed_model, created_at
FROM vector_indexes
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list index records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.IndexRecord, 0)
	for rows.Next() {
		var rec domain.IndexRecord
		if err := rows.Scan(&rec.IndexID, &rec.Filename, &rec.Pages, &rec.Chunks, &rec.EmbedModel, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan index record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index records: %w", err)
	}
	return out, nil
}
