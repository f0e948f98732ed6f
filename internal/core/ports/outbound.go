package ports

import (
	"context"
	"time"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

// Embedder builds the query vector used by vector search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore ranks chunks by embedding similarity.
type VectorStore interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// ChunkTextStore answers content-level lookups over indexed chunks.
type ChunkTextStore interface {
	FindChunksContaining(ctx context.Context, needle string, match domain.TextMatch) ([]domain.RetrievedChunk, error)
	// RankDocumentsByConcept aggregates over every chunk, ordered by
	// density desc then document id.
	RankDocumentsByConcept(ctx context.Context, concept string, limit int) ([]domain.ConceptDensity, error)
}

// GraphStore traverses entity-mention edges.
type GraphStore interface {
	FindChunksByEntities(ctx context.Context, keywords []string, limit int) ([]domain.GraphHit, error)
}

// VisualProfileStore reads per-document visual profiles produced at ingestion.
type VisualProfileStore interface {
	GetProfile(ctx context.Context, documentID string) (domain.DocumentVisualProfile, bool, error)
}

// DocumentRouteStore persists ingestion-time routing decisions.
type DocumentRouteStore interface {
	SaveDocumentRoute(ctx context.Context, documentID string, decision domain.RoutingDecision) error
}

// KeyPhraseLLM completes a single prompt. Optional.
type KeyPhraseLLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PatternSource supplies custom (category, regex) pairs for the signal detector.
type PatternSource interface {
	Patterns() ([]domain.PatternSpec, error)
}

// ProfileEvents publishes/consumes "document profiled" events.
type ProfileEvents interface {
	PublishDocumentProfiled(ctx context.Context, documentID string) error
	SubscribeDocumentProfiled(ctx context.Context, handler func(context.Context, string) error) error
}

// SearchObserver records per sub-search outcomes.
type SearchObserver interface {
	ObserveSubSearch(name string, results int, duration time.Duration, err error)
}

// RoutingObserver records final routing decisions.
type RoutingObserver interface {
	ObserveDecision(decision domain.RoutingDecision)
}

// DocumentRouteObserver records ingestion-time routing decisions.
type DocumentRouteObserver interface {
	ObserveDocumentRoute(decision domain.RoutingDecision)
}
