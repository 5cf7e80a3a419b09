package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// Match decides how token relates to keyword. Both arguments must already
// be normalized; the matcher performs no normalization of its own.
// The confusable blacklist is checked first and overrides every other rule.
func (e *Engine) Match(token, keyword string) domain.MatchKind {
	return e.match(token, keyword, 0)
}

// MatchKeyword applies a keyword's own matching settings: exact-only mode
// and an optional per-keyword edit-distance budget.
func (e *Engine) MatchKeyword(token string, kw *domain.Keyword) domain.MatchKind {
	if kw.Mode == domain.MatchModeExact {
		if token == kw.NormText {
			return domain.MatchExact
		}
		return domain.MatchNone
	}
	return e.match(token, kw.NormText, kw.FuzzyBudget)
}

func (e *Engine) match(token, keyword string, budget int) domain.MatchKind {
	if token == "" || keyword == "" {
		return domain.MatchNone
	}
	c := e.current()

	if _, blocked := c.confusables[token+"\x00"+keyword]; blocked {
		return domain.MatchNone
	}

	if token == keyword {
		return domain.MatchExact
	}

	kwLen := utf8.RuneCountInString(keyword)
	if budget <= 0 {
		budget = c.distanceFor(kwLen)
	}
	if budget > 0 && levenshtein.ComputeDistance(token, keyword) <= budget {
		return domain.MatchFuzzy
	}

	if c.substring(token, keyword, kwLen) {
		return domain.MatchSubstring
	}
	return domain.MatchNone
}

// distanceFor picks the edit-distance budget for a keyword length. Rules
// are ordered; MaxLen 0 acts as the catch-all bucket.
func (c *compiled) distanceFor(kwLen int) int {
	for _, rule := range c.thresholds {
		if rule.MaxLen == 0 || kwLen <= rule.MaxLen {
			return rule.Distance
		}
	}
	return 0
}

// substring accepts a contiguous occurrence of keyword inside token when
// the token is at most two runes longer and the occurrence is not followed
// by a derivational suffix. Digits do not count against the length cap, so
// "urgent" matches "urgent123" but not "urgently".
func (c *compiled) substring(token, keyword string, kwLen int) bool {
	idx := strings.Index(token, keyword)
	if idx < 0 {
		return false
	}
	tokLen := 0
	for _, r := range token {
		if r < '0' || r > '9' {
			tokLen++
		}
	}
	if tokLen > kwLen+2 {
		return false
	}
	rest := token[idx+len(keyword):]
	if rest == "" {
		return true
	}
	script, ok := classifyRune([]rune(token)[0])
	if !ok {
		script = ScriptLatin
	}
	for _, sfx := range c.suffixes[script] {
		if strings.HasPrefix(rest, sfx) {
			return false
		}
	}
	return true
}
