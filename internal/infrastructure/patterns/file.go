// Package patterns loads custom visual-signal categories from YAML:
//
//	categories:
//	  - name: dashboard
//	    patterns: ["\\bdashboard\\b", "대시보드"]
package patterns

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

type document struct {
	Categories []category `yaml:"categories"`
}

type category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// File is a PatternSource backed by a YAML file read on each call.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Patterns() ([]domain.PatternSpec, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a pattern document. Regexes are compiled by the registry.
func Parse(raw []byte) ([]domain.PatternSpec, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrInvalidPattern, "decode pattern file", err)
	}

	var out []domain.PatternSpec
	for i, c := range doc.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, domain.WrapError(domain.ErrInvalidPattern, "decode pattern file", fmt.Errorf("category %d has no name", i))
		}
		for _, p := range c.Patterns {
			if strings.TrimSpace(p) == "" {
				continue
			}
			out = append(out, domain.PatternSpec{Category: name, Pattern: p})
		}
	}
	return out, nil
}
