package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultChatModel  = "llama3.1"
	DefaultEmbedModel = "nomic-embed-text"
	defaultBatchSize  = 32
)

type Options struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
	APIKey     string
	BatchSize  int
	Timeout    time.Duration
	Executor   *resilience.Executor
}

type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	apiKey     string
	batchSize  int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		apiKey:     opts.APIKey,
		batchSize:  opts.BatchSize,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Executor,
	}
}

func (c *Client) EmbedModel() string {
	return c.embedModel
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.client.batchSize {
		end := min(start+e.client.batchSize, len(texts))
		request := map[string]any{
			"model": e.client.embedModel,
			"input": texts[start:end],
		}

		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return nil, err
		}
		if len(response.Embeddings) != end-start {
			return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(response.Embeddings), end-start)
		}
		out = append(out, response.Embeddings...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

func (m *ChatModel) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	payload := make([]message, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, message{Role: string(msg.Role), Content: msg.Content})
	}

	request := map[string]any{
		"model":    m.client.chatModel,
		"messages": payload,
		"stream":   false,
	}
	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := m.client.call(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, c.postJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, "ollama."+operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}, recordsFailure)
	return wrapTemporaryIfNeeded(operation, err)
}
