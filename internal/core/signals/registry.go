package signals

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/core/ports"
)

type compiledPattern struct {
	category domain.Category
	expr     *regexp.Regexp
}

// PatternRegistry is the typed Language -> Category -> patterns table.
// A registry is never mutated after construction; With returns a copy.
type PatternRegistry struct {
	codeIntent map[domain.Language][]*regexp.Regexp
	categories map[domain.Language]map[domain.Category][]*regexp.Regexp
	custom     []compiledPattern
}

// NewPatternRegistry compiles the built-in tables and every pattern supplied
// by sources. A bad expression fails the whole construction.
func NewPatternRegistry(sources ...ports.PatternSource) (*PatternRegistry, error) {
	reg := &PatternRegistry{
		codeIntent: make(map[domain.Language][]*regexp.Regexp, len(codeIntentSources)),
		categories: make(map[domain.Language]map[domain.Category][]*regexp.Regexp, len(categorySources)),
	}

	for lang, exprs := range codeIntentSources {
		compiled, err := compileAll(exprs)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidPattern, "compile code intent patterns", err)
		}
		reg.codeIntent[lang] = compiled
	}
	for lang, table := range categorySources {
		byCategory := make(map[domain.Category][]*regexp.Regexp, len(table))
		for category, exprs := range table {
			compiled, err := compileAll(exprs)
			if err != nil {
				return nil, domain.WrapError(domain.ErrInvalidPattern, fmt.Sprintf("compile %s/%s patterns", lang, category), err)
			}
			byCategory[category] = compiled
		}
		reg.categories[lang] = byCategory
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		specs, err := src.Patterns()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidPattern, "load pattern source", err)
		}
		for _, spec := range specs {
			next, err := reg.With(spec.Category, spec.Pattern)
			if err != nil {
				return nil, err
			}
			reg = next
		}
	}
	return reg, nil
}

// With returns a new registry that also holds expr under custom_<category>.
func (r *PatternRegistry) With(category, expr string) (*PatternRegistry, error) {
	name := strings.TrimSpace(category)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidPattern, "register pattern", fmt.Errorf("category is required"))
	}
	if strings.TrimSpace(expr) == "" {
		return nil, domain.WrapError(domain.ErrInvalidPattern, "register pattern", fmt.Errorf("pattern for %q is empty", name))
	}
	compiled, err := regexp.Compile(expr)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidPattern, "register pattern", fmt.Errorf("category %q: %w", name, err))
	}

	custom := make([]compiledPattern, 0, len(r.custom)+1)
	custom = append(custom, r.custom...)
	custom = append(custom, compiledPattern{category: domain.CustomCategory(name), expr: compiled})

	return &PatternRegistry{
		codeIntent: r.codeIntent,
		categories: r.categories,
		custom:     custom,
	}, nil
}

// CustomCategories lists custom categories in registration order.
func (r *PatternRegistry) CustomCategories() []domain.Category {
	out := make([]domain.Category, 0, len(r.custom))
	seen := make(map[domain.Category]struct{}, len(r.custom))
	for _, p := range r.custom {
		if _, ok := seen[p.category]; ok {
			continue
		}
		seen[p.category] = struct{}{}
		out = append(out, p.category)
	}
	return out
}

// codePatterns returns the code-intent patterns of lang unioned with English.
func (r *PatternRegistry) codePatterns(lang domain.Language) []*regexp.Regexp {
	out := append([]*regexp.Regexp(nil), r.codeIntent[lang]...)
	if lang != domain.LanguageEnglish {
		out = append(out, r.codeIntent[domain.LanguageEnglish]...)
	}
	return out
}

// categoryPatterns returns the patterns of category for lang unioned with English.
func (r *PatternRegistry) categoryPatterns(lang domain.Language, category domain.Category) []*regexp.Regexp {
	out := append([]*regexp.Regexp(nil), r.categories[lang][category]...)
	if lang != domain.LanguageEnglish {
		out = append(out, r.categories[domain.LanguageEnglish][category]...)
	}
	return out
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}
