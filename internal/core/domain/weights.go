package domain

import "fmt"

// MergeWeights holds the empirically tuned constants of the hybrid merge.
// They are regression constants, not derived optima.
type MergeWeights struct {
	VectorWeight       float64 `json:"vector_weight"`
	NewResultDiscount  float64 `json:"new_result_discount"`
	OverlapBoost       float64 `json:"overlap_boost"`
	ErrorCodeScore     float64 `json:"error_code_score"`
	TopicBase          float64 `json:"topic_base"`
	TopicDensityScale  float64 `json:"topic_density_scale"`
	TopicBoost         float64 `json:"topic_boost"`
	KeywordBoost       float64 `json:"keyword_boost"`
	GraphFallbackScore float64 `json:"graph_fallback_score"`
}

func DefaultMergeWeights() MergeWeights {
	return MergeWeights{
		VectorWeight:       0.7,
		NewResultDiscount:  0.8,
		OverlapBoost:       0.1,
		ErrorCodeScore:     1.0,
		TopicBase:          0.9,
		TopicDensityScale:  0.1,
		TopicBoost:         0.2,
		KeywordBoost:       0.1,
		GraphFallbackScore: 0.5,
	}
}

func (w MergeWeights) Validate() error {
	checks := []struct {
		name  string
		value float64
		max   float64
	}{
		{"vector_weight", w.VectorWeight, 1},
		{"new_result_discount", w.NewResultDiscount, 1},
		{"overlap_boost", w.OverlapBoost, 1},
		{"error_code_score", w.ErrorCodeScore, 10},
		{"topic_base", w.TopicBase, 10},
		{"topic_density_scale", w.TopicDensityScale, 1},
		{"topic_boost", w.TopicBoost, 1},
		{"keyword_boost", w.KeywordBoost, 1},
		{"graph_fallback_score", w.GraphFallbackScore, 1},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return WrapError(ErrInvalidConfig, "validate merge weights", fmt.Errorf("%s=%v out of range [0,%v]", c.name, c.value, c.max))
		}
	}
	return nil
}

type RoutingWeights struct {
	QueryWeight        float64 `json:"query_weight"`
	DocumentWeight     float64 `json:"document_weight"`
	DocRatioThreshold  float64 `json:"doc_ratio_threshold"`
	VisionThreshold    float64 `json:"vision_threshold"`
	FallbackConfidence float64 `json:"fallback_confidence"`
}

func DefaultRoutingWeights() RoutingWeights {
	return RoutingWeights{
		QueryWeight:        0.5,
		DocumentWeight:     0.3,
		DocRatioThreshold:  0.3,
		VisionThreshold:    0.25,
		FallbackConfidence: 0.5,
	}
}

func (w RoutingWeights) Validate() error {
	if w.QueryWeight <= 0 || w.QueryWeight > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("query_weight=%v must be in (0,1]", w.QueryWeight))
	}
	if w.DocumentWeight < 0 || w.DocumentWeight > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("document_weight=%v must be in [0,1]", w.DocumentWeight))
	}
	if w.QueryWeight+w.DocumentWeight > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("query_weight+document_weight=%v exceeds 1", w.QueryWeight+w.DocumentWeight))
	}
	if w.DocRatioThreshold < 0 || w.DocRatioThreshold > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("doc_ratio_threshold=%v must be in [0,1]", w.DocRatioThreshold))
	}
	if w.VisionThreshold <= 0 || w.VisionThreshold > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("vision_threshold=%v must be in (0,1]", w.VisionThreshold))
	}
	if w.FallbackConfidence < 0 || w.FallbackConfidence > 1 {
		return WrapError(ErrInvalidConfig, "validate routing weights", fmt.Errorf("fallback_confidence=%v must be in [0,1]", w.FallbackConfidence))
	}
	return nil
}
