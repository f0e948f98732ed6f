package domain

type DocumentVisualProfile struct {
	DocumentID            string  `json:"document_id"`
	IsPureImage           bool    `json:"is_pure_image"`
	HasCharts             bool    `json:"has_charts"`
	HasDiagrams           bool    `json:"has_diagrams"`
	RequiresOCR           bool    `json:"requires_ocr"`
	ImageAreaRatio        float64 `json:"image_area_ratio"`
	VisualComplexityScore float64 `json:"visual_complexity_score"`
	RequiresVisionLLM     bool    `json:"requires_vision_llm"`
}
