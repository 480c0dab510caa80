package usecase

import (
	"context"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
)

// AnswerComposer stuffs retrieved chunks into the system prompt and returns
// the raw model output.
type AnswerComposer struct {
	model ports.ChatModel
}

func NewAnswerComposer(model ports.ChatModel) *AnswerComposer {
	return &AnswerComposer{model: model}
}

func (c *AnswerComposer) Compose(
	ctx context.Context,
	history []domain.Turn,
	question string,
	chunks []domain.RetrievedChunk,
) (string, error) {
	system := answerSystemPrompt + formatContext(chunks)
	out, err := c.model.Chat(ctx, buildMessages(system, history, question))
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "compose answer", err)
	}
	return out, nil
}
