package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/storage/localfs"
)

const dbFileName = "index.db"

// Store keeps every index in its own SQLite file under the layout root and
// answers queries by brute-force cosine similarity.
type Store struct {
	layout *localfs.Layout

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func New(layout *localfs.Layout) *Store {
	return &Store{
		layout: layout,
		dbs:    make(map[string]*sql.DB),
	}
}

func (s *Store) Exists(_ context.Context, indexID string) (bool, error) {
	return s.layout.Exists(indexID)
}

func (s *Store) Create(ctx context.Context, indexID string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create index", errors.New("no chunks to index"))
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "create index", fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create index", errors.New("empty embedding vector"))
	}

	dir, err := s.layout.Prepare(indexID)
	if err != nil {
		return err
	}

	db, err := openDB(filepath.Join(dir, dbFileName))
	if err != nil {
		_ = s.layout.Discard(indexID)
		return err
	}
	if err := writeIndex(ctx, db, chunks, vectors, dimension); err != nil {
		_ = db.Close()
		_ = s.layout.Discard(indexID)
		return err
	}

	s.mu.Lock()
	s.dbs[indexID] = db
	s.mu.Unlock()
	return nil
}

func (s *Store) Search(ctx context.Context, indexID string, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 4
	}
	db, err := s.handle(indexID)
	if err != nil {
		return nil, err
	}

	dimension, err := readDimension(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(queryVector) != dimension {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search index", fmt.Errorf("query dimension %d, index dimension %d", len(queryVector), dimension))
	}

	rows, err := db.QueryContext(ctx, `
SELECT position, text, source, page, start_offset, end_offset, vector
FROM chunks
ORDER BY position
`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RetrievedChunk, 0)
	for rows.Next() {
		var hit domain.RetrievedChunk
		var raw []byte
		if err := rows.Scan(&hit.Index, &hit.Text, &hit.Source, &hit.Page, &hit.Start, &hit.End, &raw); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vector, err := decodeVector(raw)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %d vector: %w", hit.Index, err)
		}
		hit.Score = cosine(queryVector, vector)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index %s: %w", id, err))
		}
		delete(s.dbs, id)
	}
	return errors.Join(errs...)
}

func (s *Store) handle(indexID string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[indexID]; ok {
		return db, nil
	}

	dir, err := s.layout.Dir(indexID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, dbFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrMissingDocuments, "open index", fmt.Errorf("id=%s", indexID))
		}
		return nil, fmt.Errorf("stat index file: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s.dbs[indexID] = db
	return db, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func writeIndex(ctx context.Context, db *sql.DB, chunks []domain.Chunk, vectors [][]float32, dimension int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const schema = `
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE chunks (
	position INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	source TEXT NOT NULL,
	page INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	vector BLOB NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute index ddl: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(dimension)); err != nil {
		return fmt.Errorf("insert index meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (position, text, source, page, start_offset, end_offset, vector)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		if len(vectors[i]) != dimension {
			return domain.WrapError(domain.ErrInvalidInput, "write index", fmt.Errorf("vector %d has dimension %d, want %d", i, len(vectors[i]), dimension))
		}
		if _, err := stmt.ExecContext(ctx, i, chunk.Text, chunk.Source, chunk.Page, chunk.Start, chunk.End, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

func readDimension(ctx context.Context, db *sql.DB) (int, error) {
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&raw); err != nil {
		return 0, fmt.Errorf("read index dimension: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse index dimension: %w", err)
	}
	return n, nil
}
