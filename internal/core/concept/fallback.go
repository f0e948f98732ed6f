package concept

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

// Fallback runs the heuristic first and consults the LLM path when one is
// configured. It never returns an error.
type Fallback struct {
	heuristic *Heuristic
	llm       ports.KeyPhraseExtractor
	logger    *slog.Logger
}

func NewFallback(heuristic *Heuristic, llm ports.KeyPhraseExtractor, logger *slog.Logger) *Fallback {
	if heuristic == nil {
		heuristic = NewHeuristic()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{heuristic: heuristic, llm: llm, logger: logger}
}

func (f *Fallback) Extract(ctx context.Context, query string) (string, error) {
	analysis := f.heuristic.Analyze(query)
	if f.llm == nil || strings.TrimSpace(query) == "" {
		return analysis.Concept, nil
	}

	concept, err := f.llm.Extract(ctx, query)
	if err != nil {
		f.logger.Warn("keyphrase_llm_failed", "error", err, "heuristic", analysis.Concept)
		return analysis.Concept, nil
	}
	if concept == "" {
		return analysis.Concept, nil
	}
	if analysis.IsAction && !strings.EqualFold(concept, analysis.Concept) {
		f.logger.Debug("keyphrase_heuristic_preferred", "heuristic", analysis.Concept, "llm", concept)
		return analysis.Concept, nil
	}
	return concept, nil
}
