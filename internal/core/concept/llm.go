package concept

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

const maxKeyPhraseRunes = 64

// LLMExtractor asks a language model for one keyword and accepts it only if
// it can be found in the query.
type LLMExtractor struct {
	llm ports.KeyPhraseLLM
}

func NewLLMExtractor(llm ports.KeyPhraseLLM) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

func (e *LLMExtractor) Extract(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract key phrase", fmt.Errorf("query is empty"))
	}
	if e == nil || e.llm == nil {
		return "", domain.WrapError(domain.ErrInvalidConfig, "extract key phrase", fmt.Errorf("llm is not configured"))
	}

	raw, err := e.llm.Complete(ctx, buildKeyPhrasePrompt(query))
	if err != nil {
		return "", fmt.Errorf("complete key phrase prompt: %w", err)
	}

	answer := normalizeAnswer(raw)
	if answer == "" || utf8.RuneCountInString(answer) > maxKeyPhraseRunes {
		return "", domain.WrapError(domain.ErrInvalidKeyPhrase, "validate key phrase", fmt.Errorf("unusable answer %q", raw))
	}
	if found, ok := findFold(query, answer); ok {
		return found, nil
	}
	if stripped := StripParticle(answer); stripped != answer {
		if found, ok := findFold(query, stripped); ok {
			return found, nil
		}
	}
	return "", domain.WrapError(domain.ErrInvalidKeyPhrase, "validate key phrase", fmt.Errorf("%q is not part of the query", answer))
}

func buildKeyPhrasePrompt(query string) string {
	return `Extract exactly one keyword from the question below.
Pick the word that decides which documents are relevant; prefer actions or processes (install, migration, 설정) over generic nouns.
Copy the keyword exactly as it appears in the question.
Reply with the keyword only. No quotes, no explanation.

Question:
` + query
}

// normalizeAnswer keeps the first line of the reply and strips labels,
// quotes and trailing punctuation that models tend to add.
func normalizeAnswer(raw string) string {
	answer := strings.TrimSpace(raw)
	if idx := strings.IndexByte(answer, '\n'); idx >= 0 {
		answer = answer[:idx]
	}
	lower := strings.ToLower(answer)
	for _, label := range []string{"keyword:", "key phrase:", "키워드:", "キーワード:"} {
		if strings.HasPrefix(lower, label) {
			answer = answer[len(label):]
			break
		}
	}
	return strings.Trim(strings.TrimSpace(answer), "\"'`“”‘’「」.,!?。、")
}

// findFold returns needle as spelled in haystack when it occurs there
// case-insensitively.
func findFold(haystack, needle string) (string, bool) {
	lowerHaystack := strings.ToLower(haystack)
	lowerNeedle := strings.ToLower(needle)
	idx := strings.Index(lowerHaystack, lowerNeedle)
	if idx < 0 {
		return "", false
	}
	if len(lowerHaystack) == len(haystack) && len(lowerNeedle) == len(needle) {
		return haystack[idx : idx+len(needle)], true
	}
	return needle, true
}
