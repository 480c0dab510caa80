package ports

import (
	"context"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// ChatSession is the inbound contract of one conversation over uploaded documents.
type ChatSession interface {
	ID() string
	UploadDocument(ctx context.Context, upload domain.Upload) (domain.SessionState, error)
	SelectDocument(ctx context.Context, filename string) (domain.SessionState, error)
	AskQuestion(ctx context.Context, text string) (*domain.Reply, error)
	State() domain.SessionState
}

// SessionRegistry creates and looks up chat sessions.
type SessionRegistry interface {
	Create() (ChatSession, error)
	Get(id string) (ChatSession, error)
}
