package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func TestReformulatorSendsSystemHistoryAndQuestion(t *testing.T) {
	model := &chatModelFake{respond: func([]domain.ChatMessage) (string, error) {
		return "  What is the grading policy of Systems?  ", nil
	}}
	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "What course is this?"},
		{Role: domain.RoleAssistant, Content: "Systems."},
	}

	out, err := NewQueryReformulator(model).Reformulate(context.Background(), history, "How is it graded?")
	if err != nil {
		t.Fatalf("Reformulate() error = %v", err)
	}
	if out != "What is the grading policy of Systems?" {
		t.Fatalf("unexpected standalone question %q", out)
	}

	messages := model.calls[0]
	if len(messages) != 4 {
		t.Fatalf("expected system + 2 turns + question, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleSystem || messages[0].Content != contextualizeSystemPrompt {
		t.Fatalf("unexpected system message: %+v", messages[0])
	}
	if messages[2].Role != domain.RoleAssistant || messages[3].Content != "How is it graded?" {
		t.Fatalf("unexpected message layout: %+v", messages)
	}
}

func TestReformulatorCallsModelWithEmptyHistory(t *testing.T) {
	model := &chatModelFake{respond: func([]domain.ChatMessage) (string, error) { return "", nil }}

	out, err := NewQueryReformulator(model).Reformulate(context.Background(), nil, "Who teaches?")
	if err != nil {
		t.Fatalf("Reformulate() error = %v", err)
	}
	if model.callCount() != 1 {
		t.Fatalf("expected one model call, got %d", model.callCount())
	}
	if out != "Who teaches?" {
		t.Fatalf("blank output should fall back to the question, got %q", out)
	}
}

func TestReformulatorWrapsGenerationError(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	model := &chatModelFake{respond: func([]domain.ChatMessage) (string, error) { return "", providerErr }}

	_, err := NewQueryReformulator(model).Reformulate(context.Background(), nil, "q")
	if !domain.IsKind(err, domain.ErrGeneration) || !errors.Is(err, providerErr) {
		t.Fatalf("expected wrapped ErrGeneration, got %v", err)
	}
}

func TestComposerStuffsContextIntoSystemPrompt(t *testing.T) {
	model := &chatModelFake{respond: func([]domain.ChatMessage) (string, error) { return "raw answer", nil }}
	chunks := []domain.RetrievedChunk{
		{Chunk: domain.Chunk{Text: "Course: Systems."}},
		{Chunk: domain.Chunk{Text: "Instructor: A."}},
	}
	history := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}, {Role: domain.RoleAssistant, Content: "hello"}}

	out, err := NewAnswerComposer(model).Compose(context.Background(), history, "Who teaches?", chunks)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if out != "raw answer" {
		t.Fatalf("expected raw model output, got %q", out)
	}

	messages := model.calls[0]
	system := messages[0].Content
	if !strings.HasPrefix(system, answerSystemPrompt) {
		t.Fatalf("system prompt missing instructions: %q", system)
	}
	if !strings.HasSuffix(system, "Course: Systems.\n\nInstructor: A.") {
		t.Fatalf("context block not appended: %q", system)
	}
	if len(messages) != 4 || messages[3].Content != "Who teaches?" {
		t.Fatalf("unexpected message layout: %+v", messages)
	}
}

func TestComposerWrapsGenerationError(t *testing.T) {
	model := &chatModelFake{respond: func([]domain.ChatMessage) (string, error) { return "", errors.New("down") }}
	_, err := NewAnswerComposer(model).Compose(context.Background(), nil, "q", nil)
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
