package usecase

import "github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"

// rerankByKeywords multiplies the combined score of every chunk whose
// content mentions query keywords by 1 + boost*matches, re-sorts and
// truncates to k.
func rerankByKeywords(merged []domain.RetrievedChunk, keywords []string, boost float64, k int) []domain.RetrievedChunk {
	if len(merged) == 0 {
		return []domain.RetrievedChunk{}
	}

	out := make([]domain.RetrievedChunk, len(merged))
	copy(out, merged)
	sortByCombinedScore(out)

	if len(keywords) > 0 && boost > 0 {
		for i := range out {
			if matches := countKeywordMatches(out[i].Content, keywords); matches > 0 {
				out[i].CombinedScore *= 1 + boost*float64(matches)
			}
		}
		sortByCombinedScore(out)
	}

	return trimCandidates(out, k)
}
