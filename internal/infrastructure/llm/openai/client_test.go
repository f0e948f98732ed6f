package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

func newTestClient(url string) *Client {
	return New(Config{APIKey: "test-key", BaseURL: url, ChatModel: "chat-model", EmbedModel: "embed-model"}, nil)
}

func TestKeyPhraseLLMComplete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" deploy "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	out, err := NewKeyPhraseLLM(newTestClient(server.URL), 0).Complete(context.Background(), "pick a keyword")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "deploy" {
		t.Fatalf("expected trimmed content, got %q", out)
	}
	if got["model"] != "chat-model" {
		t.Fatalf("unexpected model %v", got["model"])
	}
}

func TestEmbedderEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"embed-model","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`))
	}))
	defer server.Close()

	vec, err := NewEmbedder(newTestClient(server.URL)).EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := NewKeyPhraseLLM(newTestClient(server.URL), 0).Complete(context.Background(), "p")
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestBadRequestIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).EmbedQuery(context.Background(), "hello")
	if err == nil || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
