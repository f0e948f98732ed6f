package ports

import (
	"context"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

// KeyPhraseExtractor returns the most central keyword of a query.
type KeyPhraseExtractor interface {
	Extract(ctx context.Context, query string) (string, error)
}

// QueryRouter is the inbound routing contract consumed by the generation pipeline.
type QueryRouter interface {
	Route(ctx context.Context, req domain.RouteRequest) domain.RoutingDecision
}

// HybridSearcher is the inbound retrieval contract.
type HybridSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) []domain.RetrievedChunk
}

// QueryPlanner routes, retrieves and finalises the model choice for one query.
type QueryPlanner interface {
	Prepare(ctx context.Context, query domain.Query, k int) (*domain.QueryPlan, error)
}

// DocumentRouter decides the model class for a document at ingestion time.
type DocumentRouter interface {
	RouteByID(ctx context.Context, documentID string) error
}

// QuerySignalDetector classifies a query into visual / code / text intent.
type QuerySignalDetector interface {
	Detect(query string, lang domain.Language) domain.VisualQuerySignals
}
