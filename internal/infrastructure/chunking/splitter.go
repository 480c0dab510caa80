package chunking

import (
	"strings"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts every page into fixed rune windows. Consecutive windows of
// the same page share exactly Overlap runes; windows never cross pages.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(pages []domain.Page) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages))
	for _, page := range pages {
		out = append(out, s.splitPage(page, len(out))...)
	}
	return out
}

func (s *Splitter) splitPage(page domain.Page, firstIndex int) []domain.Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}
	runes := []rune(page.Text)

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Chunk{
			Text:   string(runes[start:end]),
			Source: page.Source,
			Page:   page.Number,
			Index:  firstIndex + len(out),
			Start:  start,
			End:    end,
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
