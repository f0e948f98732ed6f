package concept

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeExtractor struct {
	concept string
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.concept, f.err
}

func TestFallbackWithoutLLMUsesHeuristic(t *testing.T) {
	got, err := NewFallback(nil, nil, nil).Extract(context.Background(), "What is Kubernetes?")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "Kubernetes" {
		t.Fatalf("expected Kubernetes, got %q", got)
	}
}

func TestFallbackLogsAndDiscardsLLMError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	llm := &fakeExtractor{err: errors.New("timeout")}

	got, err := NewFallback(NewHeuristic(), llm, logger).Extract(context.Background(), "What is Kubernetes?")
	if err != nil {
		t.Fatalf("Extract() must not fail, got %v", err)
	}
	if got != "Kubernetes" {
		t.Fatalf("expected heuristic result, got %q", got)
	}
	if !strings.Contains(buf.String(), "keyphrase_llm_failed") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
}

func TestFallbackPrefersActionHeuristicOnDisagreement(t *testing.T) {
	llm := &fakeExtractor{concept: "Nginx"}
	got, _ := NewFallback(NewHeuristic(), llm, nil).Extract(context.Background(), "How to configure Nginx")
	if got != "configure" {
		t.Fatalf("expected action word, got %q", got)
	}
}

func TestFallbackPrefersLLMOverNounHeuristic(t *testing.T) {
	llm := &fakeExtractor{concept: "operator"}
	got, _ := NewFallback(NewHeuristic(), llm, nil).Extract(context.Background(), "What is Kubernetes operator")
	if got != "operator" {
		t.Fatalf("expected llm keyword, got %q", got)
	}
}

func TestFallbackEmptyLLMAnswerUsesHeuristic(t *testing.T) {
	llm := &fakeExtractor{}
	got, _ := NewFallback(NewHeuristic(), llm, nil).Extract(context.Background(), "deploy to staging")
	if got != "deploy" {
		t.Fatalf("expected heuristic result, got %q", got)
	}
}

func TestFallbackSkipsLLMForEmptyQuery(t *testing.T) {
	llm := &fakeExtractor{concept: "x"}
	got, _ := NewFallback(NewHeuristic(), llm, nil).Extract(context.Background(), "  ")
	if got != "" || llm.calls != 0 {
		t.Fatalf("expected empty result without llm call, got %q calls=%d", got, llm.calls)
	}
}
