package matching

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Script classifies the characters a token is made of.
type Script string

const (
	ScriptLatin    Script = "latin"
	ScriptHebrew   Script = "hebrew"
	ScriptCyrillic Script = "cyrillic"
	ScriptDigit    Script = "digit"
)

func scriptByName(name string) (Script, error) {
	switch Script(name) {
	case ScriptLatin, ScriptHebrew, ScriptCyrillic, ScriptDigit:
		return Script(name), nil
	}
	return "", fmt.Errorf("matching config: unknown script %q", name)
}

// Token is a maximal same-script run of normalized characters. Tokens carry
// no position information; matching is position-independent.
type Token struct {
	Text   string
	Script Script
}

// stripMarks decomposes, drops combining marks (diacritics, Hebrew niqqud,
// the Cyrillic stress mark) and recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize case-folds and canonicalizes raw text via the per-script
// equivalence tables, then splits it into same-script tokens. A word mixing
// two scripts with no separator yields one token per script run. Digits
// extend the run they appear in, so "urgent123" stays a single token.
// Pure: the result depends only on raw and the installed tables.
func (e *Engine) Normalize(raw string) []Token {
	c := e.current()

	folded, _, err := transform.String(stripMarks, strings.ToLower(raw))
	if err != nil {
		// Malformed input never fails detection; fall back to the
		// lowercased original and let unmatchable runs yield nothing.
		folded = strings.ToLower(raw)
	}

	var (
		tokens  []Token
		run     strings.Builder
		current Script
	)
	flush := func() {
		if run.Len() > 0 {
			tokens = append(tokens, Token{Text: run.String(), Script: current})
			run.Reset()
		}
	}

	for _, r := range folded {
		if mapped, ok := c.fold[r]; ok {
			r = mapped
		}
		if _, drop := c.strip[r]; drop {
			continue
		}
		script, ok := classifyRune(r)
		if !ok {
			flush()
			continue
		}
		// Digits join the run in progress instead of starting a new one.
		if script == ScriptDigit && run.Len() > 0 {
			script = current
		}
		if run.Len() > 0 && script != current {
			flush()
		}
		current = script
		run.WriteRune(r)
	}
	flush()
	return tokens
}

func classifyRune(r rune) (Script, bool) {
	switch {
	case r >= '0' && r <= '9':
		return ScriptDigit, true
	case unicode.Is(unicode.Latin, r):
		return ScriptLatin, true
	case unicode.Is(unicode.Hebrew, r):
		return ScriptHebrew, true
	case unicode.Is(unicode.Cyrillic, r):
		return ScriptCyrillic, true
	}
	return "", false
}

// NormalizeWord normalizes a keyword into its canonical single-token form:
// the concatenation of all normalized runs. Keywords are stored in this
// form so token comparison needs no further normalization.
func (e *Engine) NormalizeWord(raw string) string {
	tokens := e.Normalize(raw)
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}
