package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*IndexRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &IndexRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS vector_indexes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordIndexInsertsRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO vector_indexes").
		WithArgs("abc", "syllabus.pdf", 2, 3, "text-embedding-004", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordIndex(context.Background(), domain.IndexRecord{
		IndexID:    "abc",
		Filename:   "syllabus.pdf",
		Pages:      2,
		Chunks:     3,
		EmbedModel: "text-embedding-004",
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("RecordIndex() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordIndexReportsDuplicate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO vector_indexes").
		WithArgs("abc", "a.pdf", 1, 1, "m", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordIndex(context.Background(), domain.IndexRecord{IndexID: "abc", Filename: "a.pdf", Pages: 1, Chunks: 1, EmbedModel: "m"})
	if !domain.IsKind(err, domain.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestListIndexesScansRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"index_id", "filename", "pages", "chunks", "embed_model", "created_at"}).
		AddRow("b", "b.pdf", 1, 2, "m", created).
		AddRow("a", "a.pdf", 3, 4, "m", created.Add(-time.Hour))
	mock.ExpectQuery("SELECT index_id, filename").WithArgs(10).WillReturnRows(rows)

	out, err := repo.ListIndexes(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListIndexes() error = %v", err)
	}
	if len(out) != 2 || out[0].IndexID != "b" || out[1].Chunks != 4 {
		t.Fatalf("unexpected records: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
