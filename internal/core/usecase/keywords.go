package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/concept"
)

const maxKeywords = 10

var (
	errorCodePattern     = regexp.MustCompile(`-\d{3,5}\b`)
	technicalTermPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]+\b`)
	koreanPairPattern    = regexp.MustCompile(`(\S+?)(?:와|과)\s+(\S+)`)
	versusPairPattern    = regexp.MustCompile(`(?i)(\S+)\s+(?:vs\.?|versus|compared\s+to)\s+(\S+)`)
)

// sentenceWords are capitalised only because they open a sentence.
var sentenceWords = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"is": {}, "are": {}, "do": {}, "does": {}, "did": {}, "can": {}, "could": {},
	"should": {}, "the": {}, "a": {}, "an": {}, "please": {}, "show": {}, "explain": {},
	"tell": {}, "give": {}, "compare": {}, "describe": {}, "find": {}, "list": {},
	"i": {}, "my": {}, "in": {}, "on": {}, "for": {}, "and": {}, "or": {}, "if": {},
}

// ExtractErrorCodes returns the distinct -NNN to -NNNNN tokens of query in
// order of appearance.
func ExtractErrorCodes(query string) []string {
	matches := errorCodePattern.FindAllString(query, -1)
	set := newKeywordSet(len(matches))
	for _, m := range matches {
		set.add(m)
	}
	return set.values
}

// ExtractKeywords returns error codes, capitalised or CamelCase technical
// terms and both sides of comparison pairs, deduplicated case-insensitively.
func ExtractKeywords(query string) []string {
	set := newKeywordSet(maxKeywords)
	for _, code := range ExtractErrorCodes(query) {
		set.add(code)
	}
	for _, term := range technicalTermPattern.FindAllString(query, -1) {
		if _, skip := sentenceWords[strings.ToLower(term)]; skip {
			continue
		}
		set.add(term)
	}
	for _, pattern := range []*regexp.Regexp{koreanPairPattern, versusPairPattern} {
		for _, m := range pattern.FindAllStringSubmatch(query, -1) {
			set.add(cleanKeyword(m[1]))
			set.add(cleanKeyword(m[2]))
		}
	}
	return set.values
}

// countKeywordMatches counts the distinct keywords contained in content.
func countKeywordMatches(content string, keywords []string) int {
	if content == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matches := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	return matches
}

func cleanKeyword(raw string) string {
	trimmed := strings.Trim(raw, "\"'`“”‘’「」()[]{}.,!?:;")
	return strings.Trim(concept.StripParticle(trimmed), "\"'`“”‘’「」()[]{}.,!?:;")
}

type keywordSet struct {
	seen   map[string]struct{}
	values []string
}

func newKeywordSet(capacity int) *keywordSet {
	return &keywordSet{seen: make(map[string]struct{}, capacity)}
}

func (s *keywordSet) add(keyword string) {
	if len(s.values) >= maxKeywords || utf8.RuneCountInString(keyword) < 2 {
		return
	}
	key := strings.ToLower(keyword)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, keyword)
}
