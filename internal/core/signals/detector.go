// Package signals classifies queries into visual / code / text intent using
// category-weighted pattern tables for English, Korean and Japanese.
package signals

import (
	"math"
	"regexp"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

const (
	codeIntentConfidence = 0.9
	visualThreshold      = 0.3
	customCategoryWeight = 0.15
)

func categoryWeight(category domain.Category) float64 {
	switch category {
	case domain.CategoryVisualElements, domain.CategoryDataViz:
		return 0.35
	case domain.CategoryVisualActions, domain.CategoryTable:
		return 0.25
	case domain.CategoryAppearance:
		return 0.20
	case domain.CategoryLayout:
		return 0.15
	default:
		if category.IsCustom() {
			return customCategoryWeight
		}
		return 0
	}
}

// Detector is stateless apart from its immutable registry and is safe for
// concurrent use.
type Detector struct {
	registry *PatternRegistry
}

func NewDetector(registry *PatternRegistry) *Detector {
	return &Detector{registry: registry}
}

// NewDefaultDetector builds a detector over the built-in tables only.
func NewDefaultDetector() *Detector {
	registry, err := NewPatternRegistry()
	if err != nil {
		// Built-in tables are literals; failing here is a programming error.
		panic(err)
	}
	return NewDetector(registry)
}

// WithPattern returns a detector that additionally matches expr under
// custom_<category>. The receiver is left untouched.
func (d *Detector) WithPattern(category, expr string) (*Detector, error) {
	next, err := d.registry.With(category, expr)
	if err != nil {
		return nil, err
	}
	return NewDetector(next), nil
}

// Detect never fails: empty or unknown input yields a non-visual text signal.
func (d *Detector) Detect(query string, lang domain.Language) domain.VisualQuerySignals {
	text := strings.TrimSpace(query)
	resolved := ResolveLanguage(text, lang)
	out := domain.VisualQuerySignals{
		Categories:     []domain.Category{},
		SuggestedModel: domain.ModelText,
		Language:       resolved,
	}
	if text == "" || d == nil || d.registry == nil {
		return out
	}

	if matched, ok := firstMatch(d.registry.codePatterns(resolved), text); ok {
		out.SuggestedModel = domain.ModelCode
		out.Confidence = codeIntentConfidence
		out.DetectedPatterns = []string{matched}
		return out
	}

	patterns := newMatchSet()
	total := 0.0
	for _, category := range domain.BuiltinCategories {
		if d.matchCategory(d.registry.categoryPatterns(resolved, category), text, patterns) {
			out.Categories = append(out.Categories, category)
			total += categoryWeight(category)
		}
	}

	hit := make(map[domain.Category]bool)
	for _, p := range d.registry.custom {
		if loc := p.expr.FindStringIndex(text); loc != nil {
			patterns.add(text[loc[0]:loc[1]])
			hit[p.category] = true
		}
	}
	for _, category := range d.registry.CustomCategories() {
		if hit[category] {
			out.Categories = append(out.Categories, category)
			total += categoryWeight(category)
		}
	}

	out.Confidence = roundConfidence(math.Min(1.0, total))
	out.IsVisual = out.Confidence >= visualThreshold
	if out.IsVisual {
		out.SuggestedModel = domain.ModelVision
	}
	out.DetectedPatterns = patterns.values
	return out
}

func (d *Detector) matchCategory(exprs []*regexp.Regexp, text string, patterns *matchSet) bool {
	matched := false
	for _, expr := range exprs {
		if m := expr.FindString(text); m != "" {
			patterns.add(m)
			matched = true
		}
	}
	return matched
}

func firstMatch(exprs []*regexp.Regexp, text string) (string, bool) {
	for _, expr := range exprs {
		if loc := expr.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[loc[0]:loc[1]]), true
		}
	}
	return "", false
}

func roundConfidence(v float64) float64 {
	return math.Round(v*10000) / 10000
}

type matchSet struct {
	seen   map[string]struct{}
	values []string
}

func newMatchSet() *matchSet {
	return &matchSet{seen: make(map[string]struct{})}
}

func (s *matchSet) add(v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}
