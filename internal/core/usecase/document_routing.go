package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

type documentRouteDecider interface {
	RouteForDocument(profile domain.DocumentVisualProfile) domain.RoutingDecision
}

// DocumentRoutingUseCase stores the ingestion-time model decision of a
// profiled document.
type DocumentRoutingUseCase struct {
	profiles ports.VisualProfileStore
	routes   ports.DocumentRouteStore
	decider  documentRouteDecider
	observer ports.DocumentRouteObserver
	logger   *slog.Logger
}

func NewDocumentRoutingUseCase(
	profiles ports.VisualProfileStore,
	routes ports.DocumentRouteStore,
	decider *RoutingUseCase,
	observer ports.DocumentRouteObserver,
	logger *slog.Logger,
) *DocumentRoutingUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRoutingUseCase{
		profiles: profiles,
		routes:   routes,
		decider:  decider,
		observer: observer,
		logger:   logger,
	}
}

func (uc *DocumentRoutingUseCase) RouteByID(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "route document", errors.New("document id is required"))
	}

	profile, ok, err := uc.profiles.GetProfile(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch visual profile: %w", err)
	}
	if !ok {
		return domain.WrapError(domain.ErrProfileNotFound, "route document", fmt.Errorf("document %s", documentID))
	}
	if profile.DocumentID == "" {
		profile.DocumentID = documentID
	}

	decision := uc.decider.RouteForDocument(profile)
	if err := uc.routes.SaveDocumentRoute(ctx, documentID, decision); err != nil {
		return fmt.Errorf("save document route: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveDocumentRoute(decision)
	}

	uc.logger.Info("document_routed",
		"document_id", documentID,
		"model", decision.SelectedModel,
		"confidence", decision.Confidence,
	)
	return nil
}
