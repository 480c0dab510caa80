package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

type chatModelFake struct {
	mu      sync.Mutex
	calls   [][]domain.ChatMessage
	respond func([]domain.ChatMessage) (string, error)
}

func (f *chatModelFake) Chat(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	if f.respond == nil {
		return "ok", nil
	}
	return f.respond(messages)
}

func (f *chatModelFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ragModelFake echoes the question when asked to reformulate and answers
// with the first context line otherwise.
func ragModelFake() *chatModelFake {
	return &chatModelFake{
		respond: func(messages []domain.ChatMessage) (string, error) {
			system := messages[0].Content
			question := messages[len(messages)-1].Content
			if system == contextualizeSystemPrompt {
				return question, nil
			}
			return "Answer to " + question, nil
		},
	}
}

// embedderFake maps text to a bag-of-letters vector so that similar texts
// score higher under cosine.
type embedderFake struct {
	mu         sync.Mutex
	embedCalls int
	queryCalls int
	err        error
	queryErr   error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queryCalls++
	f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return letterVector(text), nil
}

func (f *embedderFake) embeds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

func (f *embedderFake) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls + f.queryCalls
}

func letterVector(text string) []float32 {
	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[26] = 1
	return v
}

type storedIndex struct {
	chunks  []domain.Chunk
	vectors [][]float32
}

type vectorStoreFake struct {
	mu        sync.Mutex
	indexes   map[string]storedIndex
	creates   int
	createErr error
}

func newVectorStoreFake() *vectorStoreFake {
	return &vectorStoreFake{indexes: make(map[string]storedIndex)}
}

func (f *vectorStoreFake) Exists(_ context.Context, indexID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexes[indexID]
	return ok, nil
}

func (f *vectorStoreFake) Create(_ context.Context, indexID string, chunks []domain.Chunk, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.indexes[indexID]; ok {
		return domain.WrapError(domain.ErrIndexExists, "create", errors.New(indexID))
	}
	f.indexes[indexID] = storedIndex{chunks: chunks, vectors: vectors}
	return nil
}

func (f *vectorStoreFake) Search(_ context.Context, indexID string, qv []float32, limit int) ([]domain.RetrievedChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indexes[indexID]
	if !ok {
		return nil, domain.WrapError(domain.ErrMissingDocuments, "search", errors.New(indexID))
	}
	out := make([]domain.RetrievedChunk, 0, len(idx.chunks))
	for i, chunk := range idx.chunks {
		var dot float64
		for j := range qv {
			dot += float64(qv[j]) * float64(idx.vectors[i][j])
		}
		out = append(out, domain.RetrievedChunk{Chunk: chunk, Score: dot})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type extractorFake struct {
	mu    sync.Mutex
	pages map[string][]domain.Page
	err   error
	calls int
}

func (f *extractorFake) Extract(_ context.Context, filename string, _ []byte) ([]domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pages, ok := f.pages[filename]
	if !ok {
		return nil, domain.WrapError(domain.ErrExtraction, "extract", errors.New("not a pdf"))
	}
	return pages, nil
}

// pageChunker yields one chunk per non-empty page.
type pageChunker struct{}

func (pageChunker) Split(pages []domain.Page) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, domain.Chunk{
			Text:   p.Text,
			Source: p.Source,
			Page:   p.Number,
			Index:  len(out),
			End:    len([]rune(p.Text)),
		})
	}
	return out
}

type historyFake struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func (h *historyFake) Append(role domain.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, domain.Turn{Role: role, Content: content})
}

func (h *historyFake) All() []domain.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Turn(nil), h.turns...)
}

func (h *historyFake) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

func (h *historyFake) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

type catalogFake struct {
	records []domain.IndexRecord
	err     error
}

func (f *catalogFake) RecordIndex(_ context.Context, record domain.IndexRecord) error {
	f.records = append(f.records, record)
	return f.err
}

type publisherFake struct {
	records []domain.IndexRecord
}

func (f *publisherFake) PublishIndexCreated(_ context.Context, record domain.IndexRecord) error {
	f.records = append(f.records, record)
	return nil
}
