// Package openai adapts any OpenAI-compatible API to the embedding and
// key-phrase ports.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
)

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type Client struct {
	api      *openai.Client
	cfg      Config
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}
	return &Client{
		api:      openai.NewClientWithConfig(clientCfg),
		cfg:      cfg,
		executor: executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := resilience.Call(ctx, e.client.executor, "openai.embed", func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:          []string{text},
			Model:          openai.EmbeddingModel(e.client.cfg.EmbedModel),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
	}, classifyOpenAIError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("openai embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

type KeyPhraseLLM struct {
	client  *Client
	limiter *rate.Limiter
}

// NewKeyPhraseLLM limits completions to rps; rps <= 0 means unlimited.
func NewKeyPhraseLLM(client *Client, rps float64) *KeyPhraseLLM {
	limit, burst := rate.Inf, 1
	if rps > 0 {
		limit = rate.Limit(rps)
		if int(rps) > burst {
			burst = int(rps)
		}
	}
	return &KeyPhraseLLM{client: client, limiter: rate.NewLimiter(limit, burst)}
}

func (l *KeyPhraseLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("keyphrase rate limit: %w", err)
	}

	resp, err := resilience.Call(ctx, l.client.executor, "openai.chat", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return l.client.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       l.client.cfg.ChatModel,
			Temperature: 0,
			MaxTokens:   16,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
	}, classifyOpenAIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("openai chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var netErr net.Error
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case errors.As(err, &apiErr):
		retryable := isRetryableStatus(apiErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	case errors.As(err, &reqErr):
		retryable := isRetryableStatus(reqErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	case errors.As(err, &netErr):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOpenAIError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
