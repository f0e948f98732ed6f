package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

func newTestSearch(t *testing.T, vectors *fakeVectorStore, texts *fakeTextStore, graph *fakeGraphStore, observer *fakeSearchObserver, logger *slog.Logger) *HybridSearchUseCase {
	t.Helper()
	cfg := HybridSearchConfig{Weights: domain.DefaultMergeWeights(), SubSearchTimeout: 200 * time.Millisecond}

	// Nil pointers must reach the use case as nil interfaces.
	var (
		vectorPort   ports.VectorStore
		textPort     ports.ChunkTextStore
		graphPort    ports.GraphStore
		observerPort ports.SearchObserver
	)
	if vectors != nil {
		vectorPort = vectors
	}
	if texts != nil {
		textPort = texts
	}
	if graph != nil {
		graphPort = graph
	}
	if observer != nil {
		observerPort = observer
	}
	uc, err := NewHybridSearchUseCase(&fakeEmbedder{vector: []float32{0.1, 0.2}}, vectorPort, textPort, graphPort, cfg, observerPort, logger)
	if err != nil {
		t.Fatalf("NewHybridSearchUseCase() error = %v", err)
	}
	return uc
}

func errorCodeCorpus() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{ChunkID: "c1", DocumentID: "d1", Content: "General connection troubleshooting guide"},
		{ChunkID: "c2", DocumentID: "d2", Content: "Error -5212 means the license server is unreachable"},
		{ChunkID: "c3", DocumentID: "d3", Content: "Error codes overview"},
	}
}

func TestSearchErrorCodeChunkRanksFirst(t *testing.T) {
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	vectors := &fakeVectorStore{chunks: []domain.RetrievedChunk{
		{ChunkID: "c1", DocumentID: "d1", Content: "General connection troubleshooting guide", Score: 0.95},
		{ChunkID: "c3", DocumentID: "d3", Content: "Error codes overview", Score: 0.9},
	}}
	uc := newTestSearch(t, vectors, texts, nil, nil, nil)

	raw, err := uc.SearchErrorCodes(context.Background(), "what does -5212 mean", 5)
	if err != nil {
		t.Fatalf("SearchErrorCodes() error = %v", err)
	}
	if len(raw) != 1 || raw[0].ChunkID != "c2" {
		t.Fatalf("expected only c2 to match, got %+v", raw)
	}
	merged := mergeResults(uc.weights, subSearchResults{errorCodes: raw, vector: vectors.chunks})
	if merged[0].ChunkID != "c2" || merged[0].CombinedScore != 1.0 {
		t.Fatalf("expected c2 first at 1.0 before boosting, got %+v", merged[0])
	}

	out := uc.Search(context.Background(), domain.SearchRequest{Query: "what does -5212 mean", K: 5, Strategy: domain.StrategyVector})
	if len(out) == 0 || out[0].ChunkID != "c2" {
		t.Fatalf("expected c2 first in final results, got %+v", out)
	}
	if out[0].Source != domain.SourceErrorCode {
		t.Fatalf("expected error_code source, got %s", out[0].Source)
	}
}

func TestSearchTopicDensityOrdersByDensity(t *testing.T) {
	texts := &fakeTextStore{
		corpus: []domain.RetrievedChunk{
			{ChunkID: "big-3", DocumentID: "big", ChunkIndex: 3, Content: "migration notes"},
			{ChunkID: "small-0", DocumentID: "small", ChunkIndex: 0, Content: "migration overview"},
			{ChunkID: "small-2", DocumentID: "small", ChunkIndex: 2, Content: "Migration step two"},
		},
		totals: map[string]int{"big": 20, "small": 4},
	}
	uc := newTestSearch(t, nil, texts, nil, nil, nil)

	out, err := uc.SearchTopicDensity(context.Background(), "migration", 5)
	if err != nil {
		t.Fatalf("SearchTopicDensity() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(out))
	}
	if out[0].ChunkID != "small-0" || out[1].ChunkID != "small-2" || out[2].ChunkID != "big-3" {
		t.Fatalf("unexpected order: %s, %s, %s", out[0].ChunkID, out[1].ChunkID, out[2].ChunkID)
	}
	if !almostEqual(out[0].Score, 0.5) || !almostEqual(out[2].Score, 0.05) {
		t.Fatalf("unexpected densities %v / %v", out[0].Score, out[2].Score)
	}
}

func TestSearchTopicDensityIgnoresCandidateOrder(t *testing.T) {
	// Doc "a" sorts first and floods the matches; doc "z" is denser.
	corpus := make([]domain.RetrievedChunk, 0, 62)
	for i := 0; i < 60; i++ {
		corpus = append(corpus, domain.RetrievedChunk{
			ChunkID: fmt.Sprintf("a-%d", i), DocumentID: "a", ChunkIndex: i, Content: "kafka partition notes",
		})
	}
	corpus = append(corpus,
		domain.RetrievedChunk{ChunkID: "z-0", DocumentID: "z", ChunkIndex: 0, Content: "Kafka basics"},
		domain.RetrievedChunk{ChunkID: "z-1", DocumentID: "z", ChunkIndex: 1, Content: "kafka consumers"},
	)
	texts := &fakeTextStore{corpus: corpus, totals: map[string]int{"a": 1000}}
	uc := newTestSearch(t, nil, texts, nil, nil, nil)

	out, err := uc.SearchTopicDensity(context.Background(), "kafka", 5)
	if err != nil {
		t.Fatalf("SearchTopicDensity() error = %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(out))
	}
	if out[0].ChunkID != "z-0" || out[1].ChunkID != "z-1" || !almostEqual(out[0].Score, 1.0) {
		t.Fatalf("expected dense doc z first, got %+v", out[:2])
	}
	if out[2].DocumentID != "a" || !almostEqual(out[2].Score, 0.06) {
		t.Fatalf("expected doc a at 60/1000, got %+v", out[2])
	}
	if len(texts.rankSeen) != 1 || texts.rankSeen[0] != 5 {
		t.Fatalf("expected one ranking call limited to k, got %v", texts.rankSeen)
	}
}

func TestSearchTopicDensityRankErrorIsReturned(t *testing.T) {
	texts := &fakeTextStore{corpus: errorCodeCorpus(), rankErr: errors.New("graph down")}
	uc := newTestSearch(t, nil, texts, nil, nil, nil)
	if _, err := uc.SearchTopicDensity(context.Background(), "error", 5); err == nil {
		t.Fatalf("expected ranking error")
	}
	if len(texts.needles) != 0 {
		t.Fatalf("expected no chunk lookup after ranking failure, got %v", texts.needles)
	}
}

func TestSearchTopicDensitySkipsEmptyConcept(t *testing.T) {
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	uc := newTestSearch(t, nil, texts, nil, nil, nil)
	out, err := uc.SearchTopicDensity(context.Background(), "  ", 5)
	if err != nil || out != nil || len(texts.needles) != 0 {
		t.Fatalf("expected no lookup for empty concept, got %v %v %v", out, err, texts.needles)
	}
}

func TestSearchGraphRanksByMatchCount(t *testing.T) {
	graph := &fakeGraphStore{hits: []domain.GraphHit{
		{Chunk: domain.RetrievedChunk{ChunkID: "one"}, MatchCount: 1},
		{Chunk: domain.RetrievedChunk{ChunkID: "two"}, MatchCount: 2},
	}}
	uc := newTestSearch(t, nil, nil, graph, nil, nil)

	out, err := uc.SearchGraph(context.Background(), "Compare Kafka vs RabbitMQ", 5)
	if err != nil {
		t.Fatalf("SearchGraph() error = %v", err)
	}
	if len(graph.gotKeys) != 2 {
		t.Fatalf("expected two keywords, got %v", graph.gotKeys)
	}
	if out[0].ChunkID != "two" || out[0].Score != 1.0 || !almostEqual(out[1].Score, 0.5) {
		t.Fatalf("unexpected graph ranking %+v", out)
	}
	if out[0].Source != domain.SourceGraph {
		t.Fatalf("expected graph source, got %s", out[0].Source)
	}
}

func TestSearchGraphFallsBackToContentSearch(t *testing.T) {
	graph := &fakeGraphStore{}
	texts := &fakeTextStore{corpus: []domain.RetrievedChunk{
		{ChunkID: "k", DocumentID: "d", Content: "running kafka in production"},
	}}
	uc := newTestSearch(t, nil, texts, graph, nil, nil)

	out, err := uc.SearchGraph(context.Background(), "Kafka tuning", 5)
	if err != nil {
		t.Fatalf("SearchGraph() error = %v", err)
	}
	if len(out) != 1 || out[0].Score != 0.5 {
		t.Fatalf("expected fallback hit scored 0.5, got %+v", out)
	}
	if texts.needles[0] != "Kafka" {
		t.Fatalf("expected fallback on first keyword, got %v", texts.needles)
	}
}

func TestSearchVectorEmbedsWhenNoVectorGiven(t *testing.T) {
	vectors := &fakeVectorStore{chunks: []domain.RetrievedChunk{{ChunkID: "v"}}}
	uc := newTestSearch(t, vectors, nil, nil, nil, nil)

	out, err := uc.SearchVector(context.Background(), "hello", nil, 3)
	if err != nil {
		t.Fatalf("SearchVector() error = %v", err)
	}
	if len(vectors.gotVector) != 2 || out[0].Source != domain.SourceVector {
		t.Fatalf("expected embedded vector and vector source, got %v %+v", vectors.gotVector, out)
	}

	_, _ = uc.SearchVector(context.Background(), "hello", []float32{9}, 3)
	if len(vectors.gotVector) != 1 || vectors.gotVector[0] != 9 {
		t.Fatalf("expected request vector to be used, got %v", vectors.gotVector)
	}
}

func TestSearchIsolatesFailingSubSearch(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	observer := &fakeSearchObserver{}
	vectors := &fakeVectorStore{err: errors.New("qdrant down")}
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	uc := newTestSearch(t, vectors, texts, nil, observer, logger)

	out := uc.Search(context.Background(), domain.SearchRequest{Query: "-5212 failure", K: 5, Strategy: domain.StrategyVector})
	if len(out) != 1 || out[0].ChunkID != "c2" {
		t.Fatalf("expected the error-code result to survive, got %+v", out)
	}
	if !strings.Contains(logs.String(), "subsearch_failed") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
	if o, ok := observer.byName(subSearchVector); !ok || o.err == nil {
		t.Fatalf("expected vector failure to be observed, got %+v", observer.observed)
	}
}

func TestSearchAllFailingReturnsEmpty(t *testing.T) {
	boom := errors.New("unavailable")
	uc := newTestSearch(t,
		&fakeVectorStore{err: boom},
		&fakeTextStore{findErr: boom, rankErr: boom},
		&fakeGraphStore{err: boom},
		nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	)
	out := uc.Search(context.Background(), domain.SearchRequest{Query: "Kafka -5212", Concept: "kafka", K: 5, Strategy: domain.StrategyHybrid})
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", out)
	}
}

func TestSearchTimedOutSubSearchIsEmpty(t *testing.T) {
	vectors := &fakeVectorStore{block: true}
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	uc := newTestSearch(t, vectors, texts, nil, nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	uc.timeout = 20 * time.Millisecond

	start := time.Now()
	out := uc.Search(context.Background(), domain.SearchRequest{Query: "-5212", K: 5, Strategy: domain.StrategyVector})
	if time.Since(start) > time.Second {
		t.Fatalf("timed out sub-search blocked the request")
	}
	if len(out) != 1 {
		t.Fatalf("expected only error-code result, got %+v", out)
	}
}

func TestSearchCodeStrategySkipsRetrieval(t *testing.T) {
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	uc := newTestSearch(t, &fakeVectorStore{}, texts, nil, nil, nil)
	out := uc.Search(context.Background(), domain.SearchRequest{Query: "-5212", Strategy: domain.StrategyCode})
	if len(out) != 0 || len(texts.needles) != 0 {
		t.Fatalf("code strategy must not search, got %v needles=%v", out, texts.needles)
	}
}

func TestSearchNeverExceedsK(t *testing.T) {
	chunks := make([]domain.RetrievedChunk, 0, 20)
	for i := 0; i < 20; i++ {
		chunks = append(chunks, domain.RetrievedChunk{ChunkID: string(rune('a' + i)), Score: float64(i) / 20})
	}
	uc := newTestSearch(t, &fakeVectorStore{chunks: chunks}, &fakeTextStore{}, nil, nil, nil)
	out := uc.Search(context.Background(), domain.SearchRequest{Query: "anything", K: 5, Strategy: domain.StrategyVector})
	if len(out) != 5 {
		t.Fatalf("expected 5 results, got %d", len(out))
	}
}

func TestSearchGraphStrategySkipsVector(t *testing.T) {
	vectors := &fakeVectorStore{chunks: []domain.RetrievedChunk{{ChunkID: "v", Score: 1}}}
	graph := &fakeGraphStore{hits: []domain.GraphHit{{Chunk: domain.RetrievedChunk{ChunkID: "g"}, MatchCount: 1}}}
	uc := newTestSearch(t, vectors, &fakeTextStore{}, graph, nil, nil)

	out := uc.Search(context.Background(), domain.SearchRequest{Query: "Kafka topics", K: 5, Strategy: domain.StrategyGraph})
	if len(out) != 1 || out[0].ChunkID != "g" {
		t.Fatalf("expected graph-only result, got %+v", out)
	}
	if vectors.gotVector != nil {
		t.Fatalf("vector store must not be called for graph strategy")
	}
}

func TestNewHybridSearchRejectsBadWeights(t *testing.T) {
	w := domain.DefaultMergeWeights()
	w.VectorWeight = 1.5
	_, err := NewHybridSearchUseCase(nil, nil, nil, nil, HybridSearchConfig{Weights: w}, nil, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSearchTreatsTypedNilPortsAsAbsent(t *testing.T) {
	var (
		vectors  *fakeVectorStore
		graph    *fakeGraphStore
		observer *fakeSearchObserver
	)
	texts := &fakeTextStore{corpus: errorCodeCorpus()}
	cfg := HybridSearchConfig{Weights: domain.DefaultMergeWeights(), SubSearchTimeout: 200 * time.Millisecond}
	uc, err := NewHybridSearchUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, texts, graph, cfg, observer, quietLogger())
	if err != nil {
		t.Fatalf("NewHybridSearchUseCase() error = %v", err)
	}
	if uc.vectors != nil || uc.graph != nil || uc.observer != nil {
		t.Fatalf("expected typed nil ports to be dropped, got %+v", uc)
	}

	out := uc.Search(context.Background(), domain.SearchRequest{Query: "Kafka -5212", Concept: "kafka", K: 5, Strategy: domain.StrategyHybrid})
	if len(out) == 0 || out[0].ChunkID != "c2" {
		t.Fatalf("expected text-store results only, got %+v", out)
	}
}
