package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

const (
	ruleErrorCode    = "error_code"
	ruleRelationship = "relationship"
	ruleMultiEntity  = "multi_entity"
	ruleDefault      = "default"
)

var relationshipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(compare[sd]?|comparison|difference\s+between|differences?|vs\.?|versus|relationship|related\s+to|relation|depends?\s+on|dependenc(y|ies)|connected\s+to|impact\s+of|affects?)\b`),
	regexp.MustCompile(`(비교|차이|관계|연관|의존|영향|상관)`),
	regexp.MustCompile(`(比較|違い|関係|関連|依存|影響)`),
}

// StrategyClassifier is the keyword-rule retrieval classifier that predates
// the routing engine. It only proposes a retrieval strategy.
type StrategyClassifier struct{}

func NewStrategyClassifier() *StrategyClassifier {
	return &StrategyClassifier{}
}

func (c *StrategyClassifier) Classify(query string) domain.StrategyClassification {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.StrategyClassification{Strategy: domain.StrategyVector, Rule: ruleDefault}
	}

	if len(ExtractErrorCodes(query)) > 0 {
		return domain.StrategyClassification{Strategy: domain.StrategyHybrid, Confidence: 0.9, Rule: ruleErrorCode, Matched: true}
	}
	for _, p := range relationshipPatterns {
		if p.MatchString(query) {
			return domain.StrategyClassification{Strategy: domain.StrategyGraph, Confidence: 0.8, Rule: ruleRelationship, Matched: true}
		}
	}
	if countTechnicalEntities(query) >= 2 {
		return domain.StrategyClassification{Strategy: domain.StrategyHybrid, Confidence: 0.7, Rule: ruleMultiEntity, Matched: true}
	}
	return domain.StrategyClassification{Strategy: domain.StrategyVector, Confidence: 0.5, Rule: ruleDefault}
}

func countTechnicalEntities(query string) int {
	set := newKeywordSet(maxKeywords)
	for _, term := range technicalTermPattern.FindAllString(query, -1) {
		if _, skip := sentenceWords[strings.ToLower(term)]; skip {
			continue
		}
		set.add(term)
	}
	return len(set.values)
}
