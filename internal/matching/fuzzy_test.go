package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

func TestMatchExact(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, domain.MatchExact, e.Match("urgent", "urgent"))
	assert.Equal(t, domain.MatchExact, e.Match("דחופ", "דחופ"))
}

func TestMatchShortKeywordBudget(t *testing.T) {
	e := newTestEngine(t)

	// len(keyword) <= 4: one edit matches, two edits do not.
	assert.Equal(t, domain.MatchFuzzy, e.Match("halp", "help"))
	assert.Equal(t, domain.MatchNone, e.Match("halq", "help"))
}

func TestMatchMediumKeywordBudget(t *testing.T) {
	e := newTestEngine(t)

	// 5..8 runes: still a single edit.
	assert.Equal(t, domain.MatchFuzzy, e.Match("urgemt", "urgent"))
	assert.Equal(t, domain.MatchNone, e.Match("orgemt", "urgent"))
}

func TestMatchLongKeywordBudget(t *testing.T) {
	e := newTestEngine(t)

	// len(keyword) > 8: two edits match, three do not.
	assert.Equal(t, domain.MatchFuzzy, e.Match("emergancie", "emergencies"))
	assert.Equal(t, domain.MatchNone, e.Match("emargancie", "emergencies"))
}

func TestMatchSubstringRules(t *testing.T) {
	e := newTestEngine(t)

	// Trailing digits or short decorations are fine.
	assert.Equal(t, domain.MatchSubstring, e.Match("urgent123", "urgent"))
	assert.Equal(t, domain.MatchSubstring, e.Match("xurgentx", "urgent"))
	// Derivational suffixes reject the occurrence.
	assert.Equal(t, domain.MatchNone, e.Match("urgently", "urgent"))
	// Token more than two letters longer than the keyword never matches.
	assert.Equal(t, domain.MatchNone, e.Match("urgentxyz123", "urgent"))
}

func TestMatchConfusableBlacklistWins(t *testing.T) {
	e := newTestEngine(t)

	// "cash" is one edit from "crash" but blacklisted by default config.
	assert.Equal(t, domain.MatchNone, e.Match("cash", "crash"))
	// Only the listed direction is suppressed; roles are fixed.
	assert.Equal(t, domain.MatchFuzzy, e.Match("crash", "cash"))
}

func TestMatchEmptyInputs(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, domain.MatchNone, e.Match("", "urgent"))
	assert.Equal(t, domain.MatchNone, e.Match("urgent", ""))
	assert.Equal(t, domain.MatchNone, e.Match("", ""))
}

func TestMatchKeywordExactMode(t *testing.T) {
	e := newTestEngine(t)

	kw := &domain.Keyword{NormText: "urgent", Mode: domain.MatchModeExact, Enabled: true}
	assert.Equal(t, domain.MatchExact, e.MatchKeyword("urgent", kw))
	assert.Equal(t, domain.MatchNone, e.MatchKeyword("urgemt", kw))
}

func TestMatchKeywordBudgetOverride(t *testing.T) {
	e := newTestEngine(t)

	kw := &domain.Keyword{NormText: "help", Mode: domain.MatchModeFuzzy, FuzzyBudget: 2, Enabled: true}
	// Two edits allowed by the per-keyword budget even though the length
	// bucket only permits one.
	assert.Equal(t, domain.MatchFuzzy, e.MatchKeyword("hall", kw))
}
