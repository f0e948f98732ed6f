package domain

import "strings"

type Category string

const (
	CategoryVisualElements Category = "visual_elements"
	CategoryDataViz        Category = "data_viz"
	CategoryVisualActions  Category = "visual_actions"
	CategoryTable          Category = "table"
	CategoryAppearance     Category = "appearance"
	CategoryLayout         Category = "layout"

	customCategoryPrefix = "custom_"
)

// BuiltinCategories lists the built-in categories in reporting order.
var BuiltinCategories = []Category{
	CategoryVisualElements,
	CategoryDataViz,
	CategoryVisualActions,
	CategoryTable,
	CategoryAppearance,
	CategoryLayout,
}

// CustomCategory namespaces a user-registered category.
func CustomCategory(name string) Category {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, customCategoryPrefix) {
		return Category(name)
	}
	return Category(customCategoryPrefix + name)
}

func (c Category) IsCustom() bool {
	return strings.HasPrefix(string(c), customCategoryPrefix)
}

type VisualQuerySignals struct {
	IsVisual         bool       `json:"is_visual"`
	Categories       []Category `json:"categories"`
	Confidence       float64    `json:"confidence"`
	SuggestedModel   Model      `json:"suggested_model"`
	DetectedPatterns []string   `json:"detected_patterns,omitempty"`
	Language         Language   `json:"language"`
}

// PatternSpec is one (category, regex) pair supplied by a PatternSource.
type PatternSpec struct {
	Category string `json:"category" yaml:"category"`
	Pattern  string `json:"pattern" yaml:"pattern"`
}
