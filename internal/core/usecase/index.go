package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
)

const DefaultTopK = 4

type IndexManager struct {
	embedder ports.Embedder
	store    ports.VectorStore
	topK     int
	observer Observer
	logger   *slog.Logger
}

func NewIndexManager(embedder ports.Embedder, store ports.VectorStore, topK int, observer Observer, logger *slog.Logger) *IndexManager {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexManager{
		embedder: embedder,
		store:    store,
		topK:     topK,
		observer: observer,
		logger:   logger,
	}
}

// OpenOrCreate opens the index stored under indexID. When none exists it is
// built from chunks; a nil or empty chunks slice then fails with
// ErrMissingDocuments. An existing index is never rebuilt.
func (m *IndexManager) OpenOrCreate(ctx context.Context, indexID string, chunks []domain.Chunk) (ports.Retriever, error) {
	exists, err := m.store.Exists(ctx, indexID)
	if err != nil {
		return nil, fmt.Errorf("check index %s: %w", indexID, err)
	}
	if exists {
		m.logger.Info("index_opened", "index_id", indexID)
		return m.handle(indexID), nil
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrMissingDocuments, "open index", fmt.Errorf("id=%s", indexID))
	}

	start := time.Now()
	if err := m.build(ctx, indexID, chunks); err != nil {
		m.observer.ObserveIndexBuild("error", len(chunks), time.Since(start))
		return nil, err
	}
	m.observer.ObserveIndexBuild("success", len(chunks), time.Since(start))
	m.logger.Info("index_created",
		"index_id", indexID,
		"chunks", len(chunks),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return m.handle(indexID), nil
}

func (m *IndexManager) build(ctx context.Context, indexID string, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapError(domain.ErrGeneration, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrGeneration,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := m.store.Create(ctx, indexID, chunks, vectors); err != nil {
		return fmt.Errorf("persist index %s: %w", indexID, err)
	}
	return nil
}

func (m *IndexManager) handle(indexID string) *retriever {
	return &retriever{
		indexID:  indexID,
		embedder: m.embedder,
		store:    m.store,
		topK:     m.topK,
	}
}

// retriever is bound to one index and a fixed result count.
type retriever struct {
	indexID  string
	embedder ports.Embedder
	store    ports.VectorStore
	topK     int
}

func (r *retriever) IndexID() string {
	return r.indexID
}

func (r *retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error) {
	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "embed query", err)
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrGeneration, "embed query", errors.New("empty query vector"))
	}
	chunks, err := r.store.Search(ctx, r.indexID, queryVector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", r.indexID, err)
	}
	return chunks, nil
}
