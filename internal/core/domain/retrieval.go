package domain

import "strings"

type Source string

const (
	SourceVector              Source = "vector"
	SourceGraph               Source = "graph"
	SourceTopicDensity        Source = "topic_density"
	SourceTopicDensityBoosted Source = "topic_density_boosted"
	SourceErrorCode           Source = "error_code"
	SourceHybrid              Source = "hybrid"
)

// WithHybrid tags a source as also confirmed by the graph pass.
func (s Source) WithHybrid() Source {
	if strings.Contains(string(s), string(SourceHybrid)) {
		return s
	}
	if s == "" {
		return SourceHybrid
	}
	return s + "_" + SourceHybrid
}

type RetrievedChunk struct {
	ChunkID       string   `json:"chunk_id"`
	DocumentID    string   `json:"doc_id"`
	ChunkIndex    int      `json:"chunk_index"`
	Content       string   `json:"content"`
	Entities      []string `json:"entities,omitempty"`
	Score         float64  `json:"score"`
	Source        Source   `json:"source"`
	CombinedScore float64  `json:"combined_score"`
}

// GraphHit is a chunk reached through entity-mention edges.
type GraphHit struct {
	Chunk      RetrievedChunk
	MatchCount int
}

// TextMatch controls content substring lookups.
type TextMatch struct {
	CaseInsensitive bool
	Limit           int
	// DocumentIDs restricts the lookup when non-empty.
	DocumentIDs []string
}

// ConceptDensity counts a concept's chunks against all chunks of a document.
type ConceptDensity struct {
	DocumentID string
	Hits       int
	Total      int
}

func (d ConceptDensity) Density() float64 {
	if d.Total <= 0 {
		return 0
	}
	return float64(d.Hits) / float64(d.Total)
}

type SearchRequest struct {
	Query       string
	Concept     string
	K           int
	Strategy    Strategy
	QueryVector []float32
}
