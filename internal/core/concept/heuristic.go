// Package concept extracts the single most central keyword of a query.
// The heuristic path is deterministic; an optional LLM path is composed on
// top of it by Fallback.
package concept

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// actionWords are process terms that mark what a document is "about" more
// reliably than nouns do.
var actionWords = []string{
	// en
	"migration", "migrate", "installation", "install", "configuration", "configure",
	"setup", "deployment", "deploy", "error", "upgrade", "update", "backup",
	"restore", "recovery", "connection", "connect", "login", "authentication",
	"reset", "build", "troubleshooting", "troubleshoot", "integration", "rollback",
	"uninstall", "sync",
	// ko
	"마이그레이션", "설치", "설정", "구성", "배포", "에러", "오류", "업그레이드",
	"업데이트", "백업", "복구", "복원", "연결", "로그인", "인증", "초기화", "빌드",
	"연동", "동기화", "삭제",
	// ja
	"移行", "インストール", "設定", "デプロイ", "エラー", "アップグレード", "更新",
	"バックアップ", "復元", "接続", "ログイン", "認証", "リセット", "連携",
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"what", "how", "why", "when", "where", "which", "who", "whom", "is", "are",
		"was", "were", "be", "been", "the", "a", "an", "do", "does", "did", "can",
		"could", "should", "would", "will", "shall", "may", "i", "me", "my", "we",
		"our", "you", "your", "it", "its", "to", "of", "in", "on", "for", "with",
		"and", "or", "about", "this", "that", "these", "those", "please", "explain",
		"tell", "show", "give", "there", "from", "by", "as", "at", "any", "some",
		"into", "than", "then", "vs", "versus", "between",
		"무엇", "무엇인가요", "무엇인지", "뭐", "뭐야", "뭔가요", "어떻게", "왜", "언제",
		"어디", "어떤", "알려줘", "알려주세요", "설명해", "설명해줘", "주세요", "해줘",
		"방법", "대해", "대한", "대해서", "있나요", "인가요", "하나요", "하는", "좀",
		"그리고", "이것", "그것", "저것",
		"何", "なに", "どう", "なぜ", "教えて", "ください", "について", "です", "ます",
	} {
		stopWords[w] = struct{}{}
	}
}

// particles are trailing Korean/Japanese postpositions, longest first.
var particles = func() []string {
	out := []string{
		"에서", "으로", "에게", "한테", "이란", "은", "는", "이", "가", "을", "를",
		"의", "에", "로", "와", "과", "도", "만", "란",
		"は", "が", "を", "に", "で", "の", "と", "も", "へ",
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}()

// Analysis is the heuristic verdict for one query.
type Analysis struct {
	Concept  string
	IsAction bool
}

// Heuristic implements ports.KeyPhraseExtractor without any I/O.
type Heuristic struct {
	actions *regexp.Regexp
}

func NewHeuristic() *Heuristic {
	return &Heuristic{actions: compileActions(actionWords)}
}

func (h *Heuristic) Extract(_ context.Context, query string) (string, error) {
	return h.Analyze(query).Concept, nil
}

// Analyze returns the earliest action word in query, or else the longest
// remaining meaningful token.
func (h *Heuristic) Analyze(query string) Analysis {
	query = strings.TrimSpace(query)
	if query == "" {
		return Analysis{}
	}
	if loc := h.actions.FindStringIndex(query); loc != nil {
		return Analysis{Concept: query[loc[0]:loc[1]], IsAction: true}
	}

	best := ""
	bestLen := 0
	for _, token := range tokenize(query) {
		if isStopWord(token) {
			continue
		}
		token = StripParticle(token)
		if isStopWord(token) {
			continue
		}
		n := utf8.RuneCountInString(token)
		if n < 2 {
			continue
		}
		if n > bestLen {
			best, bestLen = token, n
		}
	}
	return Analysis{Concept: best}
}

// IsActionWord reports whether word is one of the known action terms.
func (h *Heuristic) IsActionWord(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	loc := h.actions.FindStringIndex(word)
	return loc != nil && loc[0] == 0 && loc[1] == len(word)
}

// StripParticle removes one trailing Korean/Japanese particle when at least
// two runes remain.
func StripParticle(token string) string {
	for _, p := range particles {
		if !strings.HasSuffix(token, p) {
			continue
		}
		rest := strings.TrimSuffix(token, p)
		if utf8.RuneCountInString(rest) >= 2 {
			return rest
		}
		return token
	}
	return token
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isStopWord(token string) bool {
	_, ok := stopWords[strings.ToLower(token)]
	return ok
}

// compileActions builds one case-insensitive alternation. Longer words come
// first so that the leftmost match is also the longest at its position.
// ASCII words are bounded on both sides; "deployer" is not "deploy".
func compileActions(words []string) *regexp.Regexp {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	alts := make([]string, 0, len(sorted))
	for _, w := range sorted {
		quoted := regexp.QuoteMeta(w)
		if isASCII(w) {
			quoted = `\b` + quoted + `\b`
		}
		alts = append(alts, quoted)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
