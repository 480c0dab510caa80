package usecase

import (
	"context"
	"strings"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
)

// QueryReformulator rewrites a follow-up question into a standalone one.
// The model is always consulted, even with an empty history.
type QueryReformulator struct {
	model ports.ChatModel
}

func NewQueryReformulator(model ports.ChatModel) *QueryReformulator {
	return &QueryReformulator{model: model}
}

func (r *QueryReformulator) Reformulate(ctx context.Context, history []domain.Turn, question string) (string, error) {
	out, err := r.model.Chat(ctx, buildMessages(contextualizeSystemPrompt, history, question))
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "reformulate question", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return question, nil
	}
	return out, nil
}
