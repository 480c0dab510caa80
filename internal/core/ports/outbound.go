package ports

import (
	"context"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// TextExtractor turns uploaded PDF bytes into ordered page texts.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error)
}

// Chunker splits pages into overlapping windows.
type Chunker interface {
	Split(pages []domain.Page) []domain.Chunk
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatModel runs one chat completion.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// VectorStore persists embedded chunks namespaced by index id.
type VectorStore interface {
	Exists(ctx context.Context, indexID string) (bool, error)
	Create(ctx context.Context, indexID string, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, indexID string, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// Retriever is a handle over one opened index.
type Retriever interface {
	IndexID() string
	Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error)
}

// IndexOpener opens a persisted index or creates it from chunks.
type IndexOpener interface {
	OpenOrCreate(ctx context.Context, indexID string, chunks []domain.Chunk) (Retriever, error)
}

// HistoryStore is the ordered conversation log of one session.
type HistoryStore interface {
	Append(role domain.Role, content string)
	All() []domain.Turn
	Clear()
	Len() int
}

// Reformulator rewrites a follow-up into a standalone question.
type Reformulator interface {
	Reformulate(ctx context.Context, history []domain.Turn, question string) (string, error)
}

// Composer produces a grounded answer from retrieved chunks.
type Composer interface {
	Compose(ctx context.Context, history []domain.Turn, question string, chunks []domain.RetrievedChunk) (string, error)
}

// IndexCatalog records created indexes.
type IndexCatalog interface {
	RecordIndex(ctx context.Context, record domain.IndexRecord) error
}

// IndexEventPublisher announces created indexes.
type IndexEventPublisher interface {
	PublishIndexCreated(ctx context.Context, record domain.IndexRecord) error
}
