package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func sampleChunks() []domain.Chunk {
	return []domain.Chunk{
		{Text: "Course: Systems. Instructor: A.", Source: "syllabus.pdf", Page: 1, Index: 0},
		{Text: "Grading: two exams and a project.", Source: "syllabus.pdf", Page: 2, Index: 1},
	}
}

func TestOpenOrCreateIsIdempotent(t *testing.T) {
	embedder := &embedderFake{}
	store := newVectorStoreFake()
	manager := NewIndexManager(embedder, store, 0, nil, nil)
	ctx := context.Background()

	first, err := manager.OpenOrCreate(ctx, "idx1", sampleChunks())
	if err != nil {
		t.Fatalf("first OpenOrCreate() error = %v", err)
	}
	second, err := manager.OpenOrCreate(ctx, "idx1", nil)
	if err != nil {
		t.Fatalf("second OpenOrCreate() error = %v", err)
	}
	if embedder.embeds() != 1 || store.creates != 1 {
		t.Fatalf("expected a single build, got embeds=%d creates=%d", embedder.embeds(), store.creates)
	}

	a, err := first.Retrieve(ctx, "Who is the instructor?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	b, err := second.Retrieve(ctx, "Who is the instructor?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("handles disagree: %+v vs %+v", a, b)
	}
	if first.IndexID() != "idx1" || second.IndexID() != "idx1" {
		t.Fatalf("unexpected index ids")
	}
}

func TestOpenOrCreateIgnoresChunksForExistingIndex(t *testing.T) {
	embedder := &embedderFake{}
	store := newVectorStoreFake()
	manager := NewIndexManager(embedder, store, 4, nil, nil)
	ctx := context.Background()

	if _, err := manager.OpenOrCreate(ctx, "idx1", sampleChunks()); err != nil {
		t.Fatalf("OpenOrCreate() error = %v", err)
	}
	other := []domain.Chunk{{Text: "unrelated", Source: "x.pdf", Page: 1}}
	if _, err := manager.OpenOrCreate(ctx, "idx1", other); err != nil {
		t.Fatalf("OpenOrCreate() error = %v", err)
	}
	if embedder.embeds() != 1 {
		t.Fatalf("existing index must not be re-embedded")
	}
	if got := len(store.indexes["idx1"].chunks); got != 2 {
		t.Fatalf("existing index was overwritten: %d chunks", got)
	}
}

func TestOpenOrCreateWithoutChunksFails(t *testing.T) {
	manager := NewIndexManager(&embedderFake{}, newVectorStoreFake(), 4, nil, nil)

	for _, chunks := range [][]domain.Chunk{nil, {}} {
		_, err := manager.OpenOrCreate(context.Background(), "missing", chunks)
		if !domain.IsKind(err, domain.ErrMissingDocuments) {
			t.Fatalf("expected ErrMissingDocuments, got %v", err)
		}
	}
}

func TestOpenOrCreateEmbedFailureBuildsNothing(t *testing.T) {
	embedder := &embedderFake{err: errors.New("provider down")}
	store := newVectorStoreFake()
	manager := NewIndexManager(embedder, store, 4, nil, nil)

	_, err := manager.OpenOrCreate(context.Background(), "idx1", sampleChunks())
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if store.creates != 0 {
		t.Fatalf("store must not be written when embedding fails")
	}
}

func TestRetrieverUsesFixedTopK(t *testing.T) {
	store := newVectorStoreFake()
	manager := NewIndexManager(&embedderFake{}, store, 1, nil, nil)
	ctx := context.Background()

	handle, err := manager.OpenOrCreate(ctx, "idx1", sampleChunks())
	if err != nil {
		t.Fatalf("OpenOrCreate() error = %v", err)
	}
	hits, err := handle.Retrieve(ctx, "grading exams project")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Page != 2 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestRetrieveEmbedFailureIsGenerationError(t *testing.T) {
	embedder := &embedderFake{}
	manager := NewIndexManager(embedder, newVectorStoreFake(), 4, nil, nil)
	handle, err := manager.OpenOrCreate(context.Background(), "idx1", sampleChunks())
	if err != nil {
		t.Fatalf("OpenOrCreate() error = %v", err)
	}

	embedder.queryErr = errors.New("timeout")
	_, err = handle.Retrieve(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
