package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/signals"
)

var noResultMessages = map[domain.Language]string{
	domain.LanguageEnglish:  "No relevant information was found in the knowledge base.",
	domain.LanguageKorean:   "지식 베이스에서 관련 정보를 찾지 못했습니다.",
	domain.LanguageJapanese: "ナレッジベースに関連する情報が見つかりませんでした。",
}

// NoResultMessage returns the user-facing "nothing found" text for lang.
func NoResultMessage(lang domain.Language) string {
	if msg, ok := noResultMessages[lang]; ok {
		return msg
	}
	return noResultMessages[domain.LanguageEnglish]
}

// PlanUseCase prepares everything the generation pipeline needs for one
// query: the routing decision, the key concept and the retrieved chunks.
type PlanUseCase struct {
	router    ports.QueryRouter
	extractor ports.KeyPhraseExtractor
	searcher  ports.HybridSearcher
	observer  ports.RoutingObserver
	logger    *slog.Logger
}

// NewPlanUseCase builds a planner. observer may be nil and sees exactly one
// decision per prepared plan.
func NewPlanUseCase(
	router ports.QueryRouter,
	extractor ports.KeyPhraseExtractor,
	searcher ports.HybridSearcher,
	observer ports.RoutingObserver,
	logger *slog.Logger,
) *PlanUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if isNilPort(observer) {
		observer = nil
	}
	return &PlanUseCase{
		router:    router,
		extractor: extractor,
		searcher:  searcher,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *PlanUseCase) Prepare(ctx context.Context, query domain.Query, k int) (*domain.QueryPlan, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "prepare plan", errors.New("query text is required"))
	}
	if k <= 0 {
		k = defaultSearchK
	}
	query.Text = text

	plan := &domain.QueryPlan{
		ID:       uuid.NewString(),
		Query:    query,
		Language: signals.ResolveLanguage(text, query.Language),
		Chunks:   []domain.RetrievedChunk{},
	}
	logger := uc.logger.With("plan_id", plan.ID)

	initial := uc.router.Route(ctx, domain.RouteRequest{Query: query})
	plan.Decision = initial
	if initial.Strategy == domain.StrategyCode {
		logger.Info("plan_prepared", "model", initial.SelectedModel, "strategy", initial.Strategy, "retrieval", "skipped")
		uc.observe(plan.Decision)
		return plan, nil
	}

	if uc.extractor != nil {
		concept, err := uc.extractor.Extract(ctx, text)
		if err != nil {
			logger.Warn("keyphrase_extract_failed", "error", err)
		}
		plan.Concept = concept
	}

	plan.Chunks = uc.searcher.Search(ctx, domain.SearchRequest{
		Query:    text,
		Concept:  plan.Concept,
		K:        k,
		Strategy: initial.Strategy,
	})
	if len(plan.Chunks) == 0 {
		plan.NoResultMessage = NoResultMessage(plan.Language)
		logger.Info("plan_prepared", "model", initial.SelectedModel, "strategy", initial.Strategy, "chunks", 0)
		uc.observe(plan.Decision)
		return plan, nil
	}

	final := uc.router.Route(ctx, domain.RouteRequest{
		Query:           query,
		RetrievedDocIDs: uniqueDocumentIDs(plan.Chunks),
	})
	// The chunks were fetched with the initial strategy; only the model
	// choice is refined by document context.
	final.Strategy = initial.Strategy
	plan.Decision = final

	logger.Info("plan_prepared",
		"model", final.SelectedModel,
		"strategy", final.Strategy,
		"confidence", final.Confidence,
		"concept", plan.Concept,
		"chunks", len(plan.Chunks),
	)
	uc.observe(plan.Decision)
	return plan, nil
}

func (uc *PlanUseCase) observe(decision domain.RoutingDecision) {
	if uc.observer != nil {
		uc.observer.ObserveDecision(decision)
	}
}

func uniqueDocumentIDs(chunks []domain.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.DocumentID == "" {
			continue
		}
		if _, ok := seen[chunk.DocumentID]; ok {
			continue
		}
		seen[chunk.DocumentID] = struct{}{}
		out = append(out, chunk.DocumentID)
	}
	return out
}
