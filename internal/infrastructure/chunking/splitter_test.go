package chunking

import (
	"reflect"
	"strings"
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func TestNewSplitterNormalizesParameters(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != DefaultChunkSize || s.Overlap != 0 {
		t.Fatalf("unexpected splitter: %+v", s)
	}
	s = NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("expected overlap clamp to 25, got %d", s.Overlap)
	}
}

func TestSplitShortPageYieldsSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split([]domain.Page{{Source: "a.pdf", Number: 1, Text: "Course: Systems. Instructor: A."}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[0].Source != "a.pdf" {
		t.Fatalf("metadata not preserved: %+v", chunks[0])
	}
	if chunks[0].Start != 0 || chunks[0].End != len([]rune("Course: Systems. Instructor: A.")) {
		t.Fatalf("unexpected offsets: %+v", chunks[0])
	}
}

func TestSplitAdjacentChunksShareOverlap(t *testing.T) {
	const size, overlap = 50, 12
	text := strings.Repeat("abcdefghijklmnopqrstuvwxyzäöü ", 20)
	s := NewSplitter(size, overlap)
	chunks := s.Split([]domain.Page{{Source: "a.pdf", Number: 3, Text: text}})
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		cur := []rune(chunks[i].Text)
		next := []rune(chunks[i+1].Text)
		if len(cur) != size {
			t.Fatalf("chunk %d has %d runes, want %d", i, len(cur), size)
		}
		tail := string(cur[len(cur)-overlap:])
		head := string(next[:overlap])
		if tail != head {
			t.Fatalf("chunk %d tail %q != chunk %d head %q", i, tail, i+1, head)
		}
	}
	last := chunks[len(chunks)-1]
	if last.End != len([]rune(text)) {
		t.Fatalf("last chunk must end at page end, got %d", last.End)
	}
}

func TestSplitDoesNotCrossPages(t *testing.T) {
	s := NewSplitter(10, 2)
	pages := []domain.Page{
		{Source: "b.pdf", Number: 1, Text: "0123456789abcdef"},
		{Source: "b.pdf", Number: 2, Text: "xyz"},
		{Source: "b.pdf", Number: 3, Text: "   \n "},
	}
	chunks := s.Split(pages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Page != 1 || chunks[1].Page != 1 || chunks[2].Page != 2 {
		t.Fatalf("unexpected page numbers: %+v", chunks)
	}
	if chunks[2].Text != "xyz" {
		t.Fatalf("page 2 chunk leaked text: %q", chunks[2].Text)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	pages := []domain.Page{{Source: "c.pdf", Number: 1, Text: strings.Repeat("lorem ipsum dolor ", 200)}}
	first := NewSplitter(300, 60).Split(pages)
	second := NewSplitter(300, 60).Split(pages)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("chunking is not deterministic")
	}
}
