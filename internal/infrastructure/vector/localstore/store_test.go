package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/storage/localfs"
)

func newTestStore(t *testing.T) (*Store, *localfs.Layout) {
	t.Helper()
	layout, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	store := New(layout)
	t.Cleanup(func() { _ = store.Close() })
	return store, layout
}

func sampleChunks() ([]domain.Chunk, [][]float32) {
	chunks := []domain.Chunk{
		{Text: "Course: Systems.", Source: "syllabus.pdf", Page: 1, Index: 0, Start: 0, End: 16},
		{Text: "Instructor: A.", Source: "syllabus.pdf", Page: 1, Index: 1, Start: 12, End: 26},
		{Text: "Grading: exams.", Source: "syllabus.pdf", Page: 2, Index: 2, Start: 0, End: 15},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	return chunks, vectors
}

func TestCreateThenSearchRanksByCosine(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := sampleChunks()

	if err := store.Create(ctx, "idx1", chunks, vectors); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	exists, err := store.Exists(ctx, "idx1")
	if err != nil || !exists {
		t.Fatalf("expected index to exist, got %v %v", exists, err)
	}

	hits, err := store.Search(ctx, "idx1", []float32{0.1, 0.9, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Text != "Instructor: A." || hits[0].Page != 1 {
		t.Fatalf("unexpected top hit: %+v", hits[0])
	}
	if hits[0].Start != 12 || hits[0].End != 26 || hits[0].Source != "syllabus.pdf" {
		t.Fatalf("chunk metadata not persisted: %+v", hits[0])
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("hits not sorted by score: %+v", hits)
	}
}

func TestSearchReopensPersistedIndex(t *testing.T) {
	layout, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	ctx := context.Background()
	chunks, vectors := sampleChunks()

	writer := New(layout)
	if err := writer.Create(ctx, "idx1", chunks, vectors); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reader := New(layout)
	defer reader.Close()
	hits, err := reader.Search(ctx, "idx1", []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "Grading: exams." {
		t.Fatalf("unexpected hits after reopen: %+v", hits)
	}
}

func TestCreateRefusesExistingIndex(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := sampleChunks()

	if err := store.Create(ctx, "idx1", chunks, vectors); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := store.Create(ctx, "idx1", chunks[:1], vectors[:1])
	if !domain.IsKind(err, domain.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}

	hits, err := store.Search(ctx, "idx1", []float32{1, 1, 1}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("existing index was modified: %d hits", len(hits))
	}
}

func TestCreateDiscardsDirOnInvalidVectors(t *testing.T) {
	store, layout := newTestStore(t)
	chunks, _ := sampleChunks()

	err := store.Create(context.Background(), "idx1", chunks, [][]float32{{1, 0}, {1}, {0, 1}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(layout.Root(), "idx1")); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial index dir removed, stat err = %v", statErr)
	}
}

func TestSearchMissingIndex(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Search(context.Background(), "nope", []float32{1}, 1)
	if !domain.IsKind(err, domain.ErrMissingDocuments) {
		t.Fatalf("expected ErrMissingDocuments, got %v", err)
	}
}

func TestVectorRoundTripAndCosine(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("vector mismatch at %d: %v != %v", i, in[i], out[i])
		}
	}
	if got := cosine([]float32{1, 0}, []float32{2, 0}); got < 0.999 {
		t.Fatalf("expected cosine 1, got %f", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Fatalf("expected cosine 0 for zero vector, got %f", got)
	}
}
