package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

const (
	defaultSearchK = 5

	subSearchErrorCode = "error_code"
	subSearchTopic     = "topic_density"
	subSearchVector    = "vector"
	subSearchGraph     = "graph"
)

type HybridSearchConfig struct {
	Weights          domain.MergeWeights
	SubSearchTimeout time.Duration
}

// HybridSearchUseCase fans out up to four sub-searches, merges them in
// priority order and reranks by query keywords. Any store may be nil; the
// matching sub-search then returns nothing.
type HybridSearchUseCase struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	texts    ports.ChunkTextStore
	graph    ports.GraphStore
	weights  domain.MergeWeights
	timeout  time.Duration
	observer ports.SearchObserver
	logger   *slog.Logger
}

func NewHybridSearchUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	texts ports.ChunkTextStore,
	graph ports.GraphStore,
	cfg HybridSearchConfig,
	observer ports.SearchObserver,
	logger *slog.Logger,
) (*HybridSearchUseCase, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.SubSearchTimeout < 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new hybrid search", fmt.Errorf("sub-search timeout must be >= 0"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	uc := &HybridSearchUseCase{
		embedder: embedder,
		vectors:  vectors,
		texts:    texts,
		graph:    graph,
		weights:  cfg.Weights,
		timeout:  cfg.SubSearchTimeout,
		observer: observer,
		logger:   logger,
	}
	// A typed nil pointer behind an interface is treated as absent.
	if isNilPort(vectors) {
		uc.vectors = nil
	}
	if isNilPort(texts) {
		uc.texts = nil
	}
	if isNilPort(graph) {
		uc.graph = nil
	}
	if isNilPort(observer) {
		uc.observer = nil
	}
	return uc, nil
}

func isNilPort(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Search never fails. An empty result means nothing relevant was found or
// every sub-search failed.
func (uc *HybridSearchUseCase) Search(ctx context.Context, req domain.SearchRequest) []domain.RetrievedChunk {
	k := req.K
	if k <= 0 {
		k = defaultSearchK
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.StrategyHybrid
	}
	if strategy == domain.StrategyCode || strings.TrimSpace(req.Query) == "" {
		return []domain.RetrievedChunk{}
	}

	var (
		results subSearchResults
		g       errgroup.Group
	)
	g.Go(func() error {
		results.errorCodes = uc.run(ctx, subSearchErrorCode, func(ctx context.Context) ([]domain.RetrievedChunk, error) {
			return uc.SearchErrorCodes(ctx, req.Query, k)
		})
		return nil
	})
	g.Go(func() error {
		results.topic = uc.run(ctx, subSearchTopic, func(ctx context.Context) ([]domain.RetrievedChunk, error) {
			return uc.SearchTopicDensity(ctx, req.Concept, k)
		})
		return nil
	})
	if strategy == domain.StrategyVector || strategy == domain.StrategyHybrid {
		g.Go(func() error {
			results.vector = uc.run(ctx, subSearchVector, func(ctx context.Context) ([]domain.RetrievedChunk, error) {
				return uc.SearchVector(ctx, req.Query, req.QueryVector, k)
			})
			return nil
		})
	}
	if strategy == domain.StrategyGraph || strategy == domain.StrategyHybrid {
		g.Go(func() error {
			results.graph = uc.run(ctx, subSearchGraph, func(ctx context.Context) ([]domain.RetrievedChunk, error) {
				return uc.SearchGraph(ctx, req.Query, k)
			})
			return nil
		})
	}
	_ = g.Wait()

	merged := mergeResults(uc.weights, results)
	return rerankByKeywords(merged, ExtractKeywords(req.Query), uc.weights.KeywordBoost, k)
}

// run executes one sub-search under its own timeout. Errors and panics are
// logged and turned into an empty result.
func (uc *HybridSearchUseCase) run(
	ctx context.Context,
	name string,
	fn func(ctx context.Context) ([]domain.RetrievedChunk, error),
) (out []domain.RetrievedChunk) {
	subCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		subCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sub-search panic: %v", r)
			out = nil
		}
		if err != nil {
			uc.logger.Warn("subsearch_failed",
				"subsearch", name,
				"error", err,
				"timeout", errors.Is(err, context.DeadlineExceeded),
			)
		}
		if uc.observer != nil {
			uc.observer.ObserveSubSearch(name, len(out), time.Since(start), err)
		}
	}()

	out, err = fn(subCtx)
	if err == nil && subCtx.Err() != nil {
		err = subCtx.Err()
	}
	if err != nil {
		out = nil
	}
	return out
}

// SearchErrorCodes matches every -NNN..-NNNNN token of query literally
// against chunk content.
func (uc *HybridSearchUseCase) SearchErrorCodes(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	codes := ExtractErrorCodes(query)
	if len(codes) == 0 || uc.texts == nil {
		return nil, nil
	}

	seen := make(map[string]struct{})
	out := make([]domain.RetrievedChunk, 0, len(codes))
	for _, code := range codes {
		chunks, err := uc.texts.FindChunksContaining(ctx, code, domain.TextMatch{Limit: k})
		if err != nil {
			return nil, fmt.Errorf("find chunks containing %q: %w", code, err)
		}
		for _, chunk := range chunks {
			key := retrievalChunkKey(chunk)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			chunk.Score = uc.weights.ErrorCodeScore
			chunk.Source = domain.SourceErrorCode
			out = append(out, chunk)
		}
	}
	return out, nil
}

// SearchTopicDensity ranks chunks mentioning concept by the share of their
// document's chunks that mention it. Densities are aggregated by the store
// over the whole corpus; chunks are then read document by document.
func (uc *HybridSearchUseCase) SearchTopicDensity(ctx context.Context, concept string, k int) ([]domain.RetrievedChunk, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" || uc.texts == nil {
		return nil, nil
	}
	if k <= 0 {
		k = defaultSearchK
	}

	// Every ranked document holds at least one chunk, so k documents fill k slots.
	densities, err := uc.texts.RankDocumentsByConcept(ctx, concept, k)
	if err != nil {
		return nil, fmt.Errorf("rank documents by concept: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, k)
	for _, d := range densities {
		if len(out) >= k {
			break
		}
		chunks, err := uc.texts.FindChunksContaining(ctx, concept, domain.TextMatch{
			CaseInsensitive: true,
			Limit:           k - len(out),
			DocumentIDs:     []string{d.DocumentID},
		})
		if err != nil {
			return nil, fmt.Errorf("find concept chunks in %s: %w", d.DocumentID, err)
		}
		for _, chunk := range chunks {
			chunk.Score = d.Density()
			chunk.Source = domain.SourceTopicDensity
			out = append(out, chunk)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return trimCandidates(out, k), nil
}

// SearchVector ranks by embedding similarity. queryVector is embedded from
// query when empty.
func (uc *HybridSearchUseCase) SearchVector(ctx context.Context, query string, queryVector []float32, k int) ([]domain.RetrievedChunk, error) {
	if uc.vectors == nil {
		return nil, nil
	}
	if len(queryVector) == 0 {
		if uc.embedder == nil {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "vector search", fmt.Errorf("no query vector and no embedder"))
		}
		vec, err := uc.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		queryVector = vec
	}

	chunks, err := uc.vectors.Search(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	for i := range chunks {
		if chunks[i].Source == "" {
			chunks[i].Source = domain.SourceVector
		}
	}
	return chunks, nil
}

// SearchGraph ranks chunks by how many query keywords they mention as
// entities. Without entity hits it falls back to a content search on the
// first keyword.
func (uc *HybridSearchUseCase) SearchGraph(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	if uc.graph != nil {
		hits, err := uc.graph.FindChunksByEntities(ctx, keywords, k)
		if err != nil {
			return nil, fmt.Errorf("find chunks by entities: %w", err)
		}
		if len(hits) > 0 {
			sort.SliceStable(hits, func(i, j int) bool {
				return hits[i].MatchCount > hits[j].MatchCount
			})
			out := make([]domain.RetrievedChunk, 0, len(hits))
			for _, hit := range hits {
				chunk := hit.Chunk
				chunk.Score = minFloat(1, float64(hit.MatchCount)/float64(len(keywords)))
				chunk.Source = domain.SourceGraph
				out = append(out, chunk)
			}
			return trimCandidates(out, k), nil
		}
	}

	if uc.texts == nil {
		return nil, nil
	}
	chunks, err := uc.texts.FindChunksContaining(ctx, keywords[0], domain.TextMatch{CaseInsensitive: true, Limit: k})
	if err != nil {
		return nil, fmt.Errorf("graph content fallback: %w", err)
	}
	for i := range chunks {
		chunks[i].Score = uc.weights.GraphFallbackScore
		chunks[i].Source = domain.SourceGraph
	}
	return chunks, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
