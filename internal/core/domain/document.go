package domain

import "time"

// Document is an uploaded PDF source.
type Document struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Pages    []Page `json:"pages,omitempty"`
}

// Page is the extracted text of one physical page.
type Page struct {
	Source string `json:"source"`
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// Chunk is a window of page text. Start and End are rune offsets into the page text.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Index  int    `json:"index"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Upload is the raw input of an upload transition.
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

type RegistryEntry struct {
	Filename  string    `json:"filename"`
	IndexID   string    `json:"index_id"`
	Pages     int       `json:"pages"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexRecord is the catalog row written once per created index.
type IndexRecord struct {
	IndexID    string    `json:"index_id"`
	Filename   string    `json:"filename"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	EmbedModel string    `json:"embed_model"`
	CreatedAt  time.Time `json:"created_at"`
}
