package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// Client stores every index in its own Qdrant collection named
// prefix + index id.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

func New(baseURL, collectionPrefix string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     collectionPrefix,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) collection(indexID string) string {
	return c.prefix + indexID
}

func (c *Client) Exists(ctx context.Context, indexID string) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection(indexID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create collection info request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("qdrant collection info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, statusError("qdrant collection info status", resp)
	}

	var info struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("decode collection info: %w", err)
	}
	return info.Result.PointsCount > 0, nil
}

func (c *Client) Create(ctx context.Context, indexID string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "create index", fmt.Errorf("no chunks to index"))
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "create index", fmt.Errorf("chunks/vectors mismatch"))
	}

	exists, err := c.Exists(ctx, indexID)
	if err != nil {
		return err
	}
	if exists {
		return domain.WrapError(domain.ErrIndexExists, "create index", fmt.Errorf("collection=%s", c.collection(indexID)))
	}

	if err := c.createCollection(ctx, indexID, len(vectors[0])); err != nil {
		return err
	}
	if err := c.upsert(ctx, indexID, chunks, vectors); err != nil {
		_ = c.dropCollection(context.WithoutCancel(ctx), indexID)
		return err
	}
	return nil
}

func (c *Client) Search(ctx context.Context, indexID string, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 4
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection(indexID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.WrapError(domain.ErrMissingDocuments, "search index", fmt.Errorf("collection=%s", c.collection(indexID)))
	}
	if resp.StatusCode >= 300 {
		return nil, statusError("qdrant search status", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			Chunk: domain.Chunk{
				Text:   getStringPayload(r.Payload, "text"),
				Source: getStringPayload(r.Payload, "source"),
				Page:   getIntPayload(r.Payload, "page"),
				Index:  getIntPayload(r.Payload, "position"),
				Start:  getIntPayload(r.Payload, "start"),
				End:    getIntPayload(r.Payload, "end"),
			},
			Score: r.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (c *Client) createCollection(ctx context.Context, indexID string, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection(indexID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant create collection request: %w", err)
	}
	defer resp.Body.Close()

	// An empty collection left behind by an earlier failed build.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		return statusError("qdrant create collection status", resp)
	}
	return nil
}

func (c *Client) upsert(ctx context.Context, indexID string, chunks []domain.Chunk, vectors [][]float32) error {
	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	namespace := uuid.NewSHA1(uuid.NameSpaceURL, []byte(indexID))
	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%d", i))).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				"position": i,
				"text":     chunk.Text,
				"source":   chunk.Source,
				"page":     chunk.Page,
				"start":    chunk.Start,
				"end":      chunk.End,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection(indexID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("qdrant upsert status", resp)
	}
	return nil
}

func (c *Client) dropCollection(ctx context.Context, indexID string) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection(indexID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create drop collection request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant drop collection request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return statusError("qdrant drop collection status", resp)
	}
	return nil
}

func statusError(prefix string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, msg)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
