package concept

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

type fakeKeyPhraseLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeKeyPhraseLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func TestLLMExtractorAcceptsSubstringInQuerySpelling(t *testing.T) {
	llm := &fakeKeyPhraseLLM{answer: "Kubernetes"}
	got, err := NewLLMExtractor(llm).Extract(context.Background(), "How do I scale kubernetes pods?")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "kubernetes" {
		t.Fatalf("expected query spelling, got %q", got)
	}
	if !strings.Contains(llm.prompt, "How do I scale kubernetes pods?") {
		t.Fatalf("prompt must carry the query, got %q", llm.prompt)
	}
}

func TestLLMExtractorAllowsOneTrailingParticle(t *testing.T) {
	llm := &fakeKeyPhraseLLM{answer: "\"파이썬은\""}
	got, err := NewLLMExtractor(llm).Extract(context.Background(), "파이썬이 뭐야")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "파이썬" {
		t.Fatalf("expected 파이썬, got %q", got)
	}
}

func TestLLMExtractorStripsLabelAndExplanation(t *testing.T) {
	llm := &fakeKeyPhraseLLM{answer: "Keyword: nginx\nbecause the question is about nginx"}
	got, err := NewLLMExtractor(llm).Extract(context.Background(), "How do I reload nginx config?")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "nginx" {
		t.Fatalf("expected nginx, got %q", got)
	}
}

func TestLLMExtractorRejectsHallucinatedKeyword(t *testing.T) {
	llm := &fakeKeyPhraseLLM{answer: "Docker"}
	_, err := NewLLMExtractor(llm).Extract(context.Background(), "How do I configure nginx?")
	if !errors.Is(err, domain.ErrInvalidKeyPhrase) {
		t.Fatalf("expected ErrInvalidKeyPhrase, got %v", err)
	}
}

func TestLLMExtractorPropagatesCallError(t *testing.T) {
	llm := &fakeKeyPhraseLLM{err: errors.New("connection refused")}
	_, err := NewLLMExtractor(llm).Extract(context.Background(), "reset password")
	if err == nil || errors.Is(err, domain.ErrInvalidKeyPhrase) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
