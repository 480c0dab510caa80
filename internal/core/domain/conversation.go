package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history fed to the language model.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is a provider-facing chat completion message.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is an entry of the displayed message log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Error     bool      `json:"error,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionState is a point-in-time snapshot of one chat session.
type SessionState struct {
	ID               string          `json:"id"`
	Registry         []RegistryEntry `json:"registry"`
	LoadedIndexID    string          `json:"loaded_index_id,omitempty"`
	SelectedDocument string          `json:"selected_document,omitempty"`
	Messages         []Message       `json:"messages"`
	HistoryTurns     int             `json:"history_turns"`
}

// HasDocuments reports whether anything was uploaded in the session.
func (s SessionState) HasDocuments() bool {
	return len(s.Registry) > 0
}

func (s SessionState) Lookup(filename string) (RegistryEntry, bool) {
	for _, e := range s.Registry {
		if e.Filename == filename {
			return e, true
		}
	}
	return RegistryEntry{}, false
}
