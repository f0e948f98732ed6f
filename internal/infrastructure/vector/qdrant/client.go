package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type statusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qdrant search status: %s", e.Status)
	}
	return fmt.Sprintf("qdrant search status: %s: %s", e.Status, e.Body)
}

type searchHit struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search returns the nearest chunks in payload order, tagged as vector hits.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	if len(queryVector) == 0 || limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	body, err := json.Marshal(map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	hits, err := resilience.Call(ctx, c.executor, "qdrant.search", func(ctx context.Context) ([]searchHit, error) {
		return c.search(ctx, body)
	}, classifyQdrantError)
	if err != nil {
		if classifyQdrantError(err).Retryable && !domain.IsKind(err, domain.ErrTemporary) {
			return nil, domain.WrapError(domain.ErrTemporary, "qdrant search", err)
		}
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunkID := getStringPayload(h.Payload, "chunk_id")
		if chunkID == "" && h.ID != nil {
			chunkID = fmt.Sprintf("%v", h.ID)
		}
		content := getStringPayload(h.Payload, "content")
		if content == "" {
			content = getStringPayload(h.Payload, "text")
		}
		out = append(out, domain.RetrievedChunk{
			ChunkID:    chunkID,
			DocumentID: getStringPayload(h.Payload, "doc_id"),
			ChunkIndex: getIntPayload(h.Payload, "chunk_index"),
			Content:    content,
			Entities:   getStringsPayload(h.Payload, "entities"),
			Score:      h.Score,
			Source:     domain.SourceVector,
		})
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, body []byte) ([]searchHit, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
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

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(msg))}
	}

	var searchResp struct {
		Result []searchHit `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return searchResp.Result, nil
}

func classifyQdrantError(err error) resilience.ErrorClassification {
	var statusErr *statusError
	var netErr net.Error
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case errors.As(err, &statusErr):
		retryable := statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	case errors.As(err, &netErr):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// JSON numbers decode as float64; string indexes are tolerated.
func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func getStringsPayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
