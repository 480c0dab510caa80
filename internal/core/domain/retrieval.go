package domain

type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}

type Source struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
}

// Reply is the outcome of one question turn.
type Reply struct {
	Question           string   `json:"question"`
	StandaloneQuestion string   `json:"standalone_question,omitempty"`
	Message            Message  `json:"message"`
	Sources            []Source `json:"sources,omitempty"`
}

func SourcesOf(chunks []RetrievedChunk) []Source {
	out := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, Source{Filename: c.Source, Page: c.Page, Score: c.Score})
	}
	return out
}
