package usecase

import (
	"strings"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

const contextualizeSystemPrompt = "You are a precision question analyzer. " +
	"Given a chat history and the latest user question which might reference context in the chat history, " +
	"carefully formulate a standalone question that includes all necessary context. " +
	"The reformulated question should: " +
	"1. Be completely understandable without requiring the chat history " +
	"2. Resolve all pronouns and references to previous messages " +
	"3. Preserve the original intent and scope of the user's question " +
	"4. Include all relevant constraints or parameters mentioned earlier in the conversation " +
	"5. Be phrased as a clear, direct question " +
	"Do NOT answer the question, just reformulate it if needed and otherwise return it as is."

const answerSystemPrompt = "You are an expert educational assistant specialized in analyzing documents. " +
	"Use the following pieces of retrieved context to answer the question thoroughly. " +
	"When answering: " +
	"1. Directly cite specific information from the context when possible " +
	"2. Structure complex answers with clear organization " +
	"3. If the question requires a list, provide a numbered or bulleted response " +
	"4. For factual questions, prioritize accuracy and be precise " +
	"5. For conceptual questions, explain key terms and relationships " +
	"6. If the context doesn't contain enough information, acknowledge what you don't know rather than making up information " +
	"7. Summarize your key points in a brief conclusion " +
	"\n\n"

// buildMessages lays out system prompt, prior turns and the new question
// in the order chat models expect.
func buildMessages(system string, history []domain.Turn, question string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history)+2)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	for _, turn := range history {
		out = append(out, domain.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: question})
	return out
}

func formatContext(chunks []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}
