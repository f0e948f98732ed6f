package domain

type Model string

const (
	ModelVision Model = "vision"
	ModelText   Model = "text"
	ModelCode   Model = "code"
)

type Strategy string

const (
	StrategyVector Strategy = "vector"
	StrategyGraph  Strategy = "graph"
	StrategyHybrid Strategy = "hybrid"
	StrategyCode   Strategy = "code"
)

type VisualContext struct {
	VisualDocRatio float64             `json:"visual_doc_ratio"`
	VisualDocs     int                 `json:"visual_docs"`
	TotalDocs      int                 `json:"total_docs"`
	TotalScore     float64             `json:"total_visual_score"`
	Signals        *VisualQuerySignals `json:"signals,omitempty"`
}

type RoutingDecision struct {
	SelectedModel Model          `json:"selected_model"`
	Strategy      Strategy       `json:"strategy"`
	Confidence    float64        `json:"confidence"`
	Reasoning     string         `json:"reasoning"`
	VisualContext *VisualContext `json:"visual_context,omitempty"`
}

type RouteRequest struct {
	Query           Query
	RetrievedDocIDs []string
	Profiles        map[string]DocumentVisualProfile
}

// StrategyClassification is the retrieval-strategy verdict of the keyword rule classifier.
type StrategyClassification struct {
	Strategy   Strategy `json:"strategy"`
	Confidence float64  `json:"confidence"`
	Rule       string   `json:"rule"`
	Matched    bool     `json:"matched"`
}

type QueryPlan struct {
	ID              string           `json:"id"`
	Query           Query            `json:"query"`
	Language        Language         `json:"language"`
	Decision        RoutingDecision  `json:"decision"`
	Concept         string           `json:"concept,omitempty"`
	Chunks          []RetrievedChunk `json:"chunks"`
	NoResultMessage string           `json:"no_result_message,omitempty"`
}
