package signals

import (
	"unicode"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

// scriptDominance is the share of non-space runes a script needs before it
// decides the language.
const scriptDominance = 0.3

// ResolveLanguage returns hint unless it is auto, in which case the language
// is inferred from the script mix of text.
func ResolveLanguage(text string, hint domain.Language) domain.Language {
	switch hint {
	case domain.LanguageEnglish, domain.LanguageKorean, domain.LanguageJapanese:
		return hint
	}
	return DetectLanguage(text)
}

// DetectLanguage counts Hangul, Kana/Kanji and Latin runes and falls back
// to English when no script dominates.
func DetectLanguage(text string) domain.Language {
	var hangul, japanese, latin, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Han, r):
			japanese++
		case unicode.In(r, unicode.Latin):
			latin++
		}
	}
	if total == 0 {
		return domain.LanguageEnglish
	}

	hangulRatio := float64(hangul) / float64(total)
	japaneseRatio := float64(japanese) / float64(total)
	switch {
	case hangulRatio > scriptDominance && hangulRatio >= japaneseRatio:
		return domain.LanguageKorean
	case japaneseRatio > scriptDominance:
		return domain.LanguageJapanese
	default:
		return domain.LanguageEnglish
	}
}
