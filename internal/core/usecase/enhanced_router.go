package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

// EnhancedRouter combines the routing engine, which owns the model choice,
// with the keyword-rule classifier, which may refine the retrieval strategy.
type EnhancedRouter struct {
	engine     ports.QueryRouter
	classifier *StrategyClassifier
	logger     *slog.Logger
}

func NewEnhancedRouter(engine ports.QueryRouter, classifier *StrategyClassifier, logger *slog.Logger) *EnhancedRouter {
	if classifier == nil {
		classifier = NewStrategyClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnhancedRouter{engine: engine, classifier: classifier, logger: logger}
}

func (r *EnhancedRouter) Route(ctx context.Context, req domain.RouteRequest) domain.RoutingDecision {
	decision := r.engine.Route(ctx, req)
	if req.Query.ForceVision || req.Query.ForceText || decision.Strategy == domain.StrategyCode {
		return decision
	}

	classification, ok := r.classify(req.Query.Text)
	if !ok {
		return decision
	}
	rule := "engine"
	if classification.Matched {
		decision.Strategy = classification.Strategy
		rule = classification.Rule
	}
	decision.Reasoning = fmt.Sprintf("%s; retrieval: %s", decision.Reasoning, rule)
	return decision
}

func (r *EnhancedRouter) classify(query string) (out domain.StrategyClassification, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("strategy_classifier_recovered", "panic", fmt.Sprint(rec))
			ok = false
		}
	}()
	return r.classifier.Classify(query), true
}
