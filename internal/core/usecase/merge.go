package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

// subSearchResults holds the isolated output of every sub-search.
type subSearchResults struct {
	errorCodes []domain.RetrievedChunk
	topic      []domain.RetrievedChunk
	vector     []domain.RetrievedChunk
	graph      []domain.RetrievedChunk
}

type scoreAccumulator struct {
	chunk    domain.RetrievedChunk
	combined float64
	source   domain.Source
}

// mergeAccumulator folds sub-search results in priority order. Scores only
// grow; nothing is written back to the input chunks.
type mergeAccumulator struct {
	weights domain.MergeWeights
	entries map[string]scoreAccumulator
	order   []string
}

func newMergeAccumulator(weights domain.MergeWeights, capacity int) *mergeAccumulator {
	return &mergeAccumulator{
		weights: weights,
		entries: make(map[string]scoreAccumulator, capacity),
		order:   make([]string, 0, capacity),
	}
}

// mergeResults applies error-code, topic-density, vector and graph results
// in that order and returns the result sorted by combined score.
func mergeResults(weights domain.MergeWeights, in subSearchResults) []domain.RetrievedChunk {
	acc := newMergeAccumulator(weights, len(in.errorCodes)+len(in.topic)+len(in.vector)+len(in.graph))
	w := acc.weights
	graphWeight := 1 - w.VectorWeight

	acc.pass(in.errorCodes,
		func(domain.RetrievedChunk) (float64, domain.Source) {
			return w.ErrorCodeScore, domain.SourceErrorCode
		},
		nil,
	)
	acc.pass(in.topic,
		func(c domain.RetrievedChunk) (float64, domain.Source) {
			return w.TopicBase + c.Score*w.TopicDensityScale, domain.SourceTopicDensity
		},
		func(domain.RetrievedChunk, domain.Source) (float64, domain.Source) {
			return w.TopicBoost, domain.SourceTopicDensityBoosted
		},
	)
	acc.pass(in.vector,
		func(c domain.RetrievedChunk) (float64, domain.Source) {
			return c.Score * w.VectorWeight * w.NewResultDiscount, domain.SourceVector
		},
		func(c domain.RetrievedChunk, current domain.Source) (float64, domain.Source) {
			return c.Score * w.OverlapBoost, current
		},
	)
	acc.pass(in.graph,
		func(c domain.RetrievedChunk) (float64, domain.Source) {
			return c.Score * graphWeight * w.NewResultDiscount, domain.SourceGraph
		},
		func(c domain.RetrievedChunk, current domain.Source) (float64, domain.Source) {
			return c.Score * graphWeight * w.OverlapBoost, current.WithHybrid()
		},
	)

	return acc.materialize()
}

// pass inserts unseen chunks with insert and adjusts already present ones
// with boost. A nil boost leaves existing entries untouched.
func (a *mergeAccumulator) pass(
	chunks []domain.RetrievedChunk,
	insert func(domain.RetrievedChunk) (float64, domain.Source),
	boost func(domain.RetrievedChunk, domain.Source) (float64, domain.Source),
) {
	seen := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		key := retrievalChunkKey(chunk)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entry, exists := a.entries[key]
		if !exists {
			score, source := insert(chunk)
			a.entries[key] = scoreAccumulator{chunk: chunk, combined: math.Max(0, score), source: source}
			a.order = append(a.order, key)
			continue
		}
		if boost == nil {
			continue
		}
		delta, source := boost(chunk, entry.source)
		entry.combined += math.Max(0, delta)
		entry.source = source
		entry.chunk = preferRicherChunk(entry.chunk, chunk)
		a.entries[key] = entry
	}
}

func (a *mergeAccumulator) materialize() []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(a.order))
	for _, key := range a.order {
		entry := a.entries[key]
		chunk := entry.chunk
		chunk.CombinedScore = entry.combined
		chunk.Source = entry.source
		out = append(out, chunk)
	}
	sortByCombinedScore(out)
	return out
}

// sortByCombinedScore orders descending; ties keep insertion order.
func sortByCombinedScore(chunks []domain.RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].CombinedScore > chunks[j].CombinedScore
	})
}

func trimCandidates(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

func retrievalChunkKey(chunk domain.RetrievedChunk) string {
	if chunk.ChunkID != "" {
		return chunk.ChunkID
	}
	if chunk.DocumentID != "" && chunk.ChunkIndex >= 0 {
		return fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex)
	}
	return fmt.Sprintf("%s|%s", chunk.DocumentID, chunk.Content)
}

func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.Content == "" && candidate.Content != "" {
		current.Content = candidate.Content
	}
	if current.DocumentID == "" && candidate.DocumentID != "" {
		current.DocumentID = candidate.DocumentID
	}
	if len(current.Entities) == 0 && len(candidate.Entities) > 0 {
		current.Entities = candidate.Entities
	}
	return current
}
