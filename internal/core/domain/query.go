package domain

import "strings"

type Language string

const (
	LanguageAuto     Language = "auto"
	LanguageEnglish  Language = "en"
	LanguageKorean   Language = "ko"
	LanguageJapanese Language = "ja"
)

// ParseLanguage maps a free-form hint onto a supported language, defaulting to auto.
func ParseLanguage(raw string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageEnglish:
		return LanguageEnglish
	case LanguageKorean:
		return LanguageKorean
	case LanguageJapanese:
		return LanguageJapanese
	default:
		return LanguageAuto
	}
}

type Query struct {
	Text        string   `json:"text"`
	Language    Language `json:"language,omitempty"`
	ForceVision bool     `json:"force_vision,omitempty"`
	ForceText   bool     `json:"force_text,omitempty"`
}
