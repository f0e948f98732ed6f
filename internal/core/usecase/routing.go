package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

const (
	codeRouteConfidence    = 0.9
	maxVisionConfidence    = 0.95
	minTextConfidence      = 0.7
	documentVisionBase     = 0.7
	documentVisionScale    = 0.25
	highImageAreaRatio     = 0.5
	highVisualComplexity   = 0.6
	reasonForcedVision     = "Forced Vision LLM by request"
	reasonForcedText       = "Forced Text LLM by request"
	reasonCodeRequest      = "Code generation request detected"
	reasonStandardText     = "Standard text-based query"
	reasonEmptyQuery       = "Empty query, defaulting to text"
	reasonRoutingRecovered = "Routing fell back to text after an internal error"
)

// RoutingUseCase picks the generation model and retrieval strategy from
// query signals and the visual profiles of retrieved documents.
type RoutingUseCase struct {
	detector ports.QuerySignalDetector
	profiles ports.VisualProfileStore
	weights  domain.RoutingWeights
	logger   *slog.Logger
}

func NewRoutingUseCase(
	detector ports.QuerySignalDetector,
	profiles ports.VisualProfileStore,
	weights domain.RoutingWeights,
	logger *slog.Logger,
) (*RoutingUseCase, error) {
	if detector == nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new routing usecase", fmt.Errorf("signal detector is required"))
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RoutingUseCase{
		detector: detector,
		profiles: profiles,
		weights:  weights,
		logger:   logger,
	}, nil
}

// Route always returns a decision. Internal faults map to the text/vector
// fallback at FallbackConfidence. Decisions are not observed here; a plan
// routes twice and records only its final decision.
func (uc *RoutingUseCase) Route(ctx context.Context, req domain.RouteRequest) (decision domain.RoutingDecision) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("routing_recovered", "panic", fmt.Sprint(r))
			decision = uc.fallbackDecision(reasonRoutingRecovered)
		}
	}()
	return uc.route(ctx, req)
}

func (uc *RoutingUseCase) route(ctx context.Context, req domain.RouteRequest) domain.RoutingDecision {
	query := req.Query
	switch {
	case query.ForceVision:
		return domain.RoutingDecision{
			SelectedModel: domain.ModelVision,
			Strategy:      domain.StrategyHybrid,
			Confidence:    1.0,
			Reasoning:     reasonForcedVision,
		}
	case query.ForceText:
		return domain.RoutingDecision{
			SelectedModel: domain.ModelText,
			Strategy:      domain.StrategyVector,
			Confidence:    1.0,
			Reasoning:     reasonForcedText,
		}
	}

	if strings.TrimSpace(query.Text) == "" {
		return uc.fallbackDecision(reasonEmptyQuery)
	}

	signals := uc.detector.Detect(query.Text, query.Language)
	if signals.SuggestedModel == domain.ModelCode {
		return domain.RoutingDecision{
			SelectedModel: domain.ModelCode,
			Strategy:      domain.StrategyCode,
			Confidence:    codeRouteConfidence,
			Reasoning:     reasonCodeRequest,
			VisualContext: &domain.VisualContext{Signals: &signals},
		}
	}

	visualDocs, totalDocs := uc.countVisualDocuments(ctx, req)
	ratio := 0.0
	if totalDocs > 0 {
		ratio = float64(visualDocs) / float64(totalDocs)
	}
	docContribution := 0.0
	if ratio >= uc.weights.DocRatioThreshold && ratio > 0 {
		docContribution = ratio
	}
	total := signals.Confidence*uc.weights.QueryWeight + docContribution*uc.weights.DocumentWeight

	reasons := make([]string, 0, 2)
	if signals.IsVisual {
		reasons = append(reasons, fmt.Sprintf("Query contains visual signals (%s)", joinCategories(signals.Categories)))
	}
	if docContribution > 0 {
		reasons = append(reasons, fmt.Sprintf("Retrieved docs are %.0f%% visual", ratio*100))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, reasonStandardText)
	}

	out := domain.RoutingDecision{
		Reasoning: strings.Join(reasons, "; "),
		VisualContext: &domain.VisualContext{
			VisualDocRatio: roundScore(ratio),
			VisualDocs:     visualDocs,
			TotalDocs:      totalDocs,
			TotalScore:     roundScore(total),
			Signals:        &signals,
		},
	}
	if total >= uc.weights.VisionThreshold {
		out.SelectedModel = domain.ModelVision
		out.Strategy = domain.StrategyHybrid
		out.Confidence = roundScore(math.Min(maxVisionConfidence, 0.5+total))
	} else {
		out.SelectedModel = domain.ModelText
		out.Strategy = domain.StrategyVector
		out.Confidence = roundScore(math.Max(minTextConfidence, 1.0-total))
	}
	return out
}

// countVisualDocuments counts unique retrieved documents and those that
// require a vision model. Profiles missing from the request are looked up
// in the store; lookup failures count as absent.
func (uc *RoutingUseCase) countVisualDocuments(ctx context.Context, req domain.RouteRequest) (visual, total int) {
	seen := make(map[string]struct{}, len(req.RetrievedDocIDs))
	for _, id := range req.RetrievedDocIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		total++

		profile, ok := req.Profiles[id]
		if !ok && uc.profiles != nil {
			var err error
			profile, ok, err = uc.profiles.GetProfile(ctx, id)
			if err != nil {
				uc.logger.Warn("visual_profile_lookup_failed", "document_id", id, "error", err)
				ok = false
			}
		}
		if ok && profile.RequiresVisionLLM {
			visual++
		}
	}
	return visual, total
}

// RouteForDocument decides the model class for a document at ingestion
// time, independent of any query.
func (uc *RoutingUseCase) RouteForDocument(profile domain.DocumentVisualProfile) domain.RoutingDecision {
	complexity := clamp01(profile.VisualComplexityScore)

	flags := make([]string, 0, 6)
	if profile.IsPureImage {
		flags = append(flags, "pure image")
	}
	if profile.HasCharts {
		flags = append(flags, "has charts")
	}
	if profile.HasDiagrams {
		flags = append(flags, "has diagrams")
	}
	if profile.RequiresOCR {
		flags = append(flags, "requires OCR")
	}
	if profile.ImageAreaRatio > highImageAreaRatio {
		flags = append(flags, fmt.Sprintf("high image area ratio (%.0f%%)", profile.ImageAreaRatio*100))
	}
	if complexity >= highVisualComplexity {
		flags = append(flags, fmt.Sprintf("high visual complexity (%.2f)", complexity))
	}

	if profile.RequiresVisionLLM {
		reasoning := "Document requires Vision LLM"
		if len(flags) > 0 {
			reasoning += ": " + strings.Join(flags, ", ")
		}
		return domain.RoutingDecision{
			SelectedModel: domain.ModelVision,
			Strategy:      domain.StrategyHybrid,
			Confidence:    roundScore(math.Min(maxVisionConfidence, documentVisionBase+documentVisionScale*complexity)),
			Reasoning:     reasoning,
		}
	}

	reasoning := "Text-based document"
	if len(flags) > 0 {
		reasoning += " (" + strings.Join(flags, ", ") + ")"
	}
	return domain.RoutingDecision{
		SelectedModel: domain.ModelText,
		Strategy:      domain.StrategyVector,
		Confidence:    roundScore(math.Max(minTextConfidence, 1.0-complexity)),
		Reasoning:     reasoning,
	}
}

func (uc *RoutingUseCase) fallbackDecision(reason string) domain.RoutingDecision {
	return domain.RoutingDecision{
		SelectedModel: domain.ModelText,
		Strategy:      domain.StrategyVector,
		Confidence:    uc.weights.FallbackConfidence,
		Reasoning:     reason,
	}
}

func joinCategories(categories []domain.Category) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}

func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
