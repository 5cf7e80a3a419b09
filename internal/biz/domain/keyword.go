package domain

import "time"

// UserID identifies a monitored user. The empty UserID is the global
// scope: keywords owned by it apply to everyone.
type UserID string

// MatchMode selects how a keyword is compared against tokens.
type MatchMode string

const (
	// MatchModeExact requires token equality after normalization.
	MatchModeExact MatchMode = "exact"
	// MatchModeFuzzy allows edit distance and substring matches.
	MatchModeFuzzy MatchMode = "fuzzy"
)

// Keyword is one watched word. NormText is the normalized form all
// comparisons run against; Text preserves what the owner typed.
type Keyword struct {
	Text     string
	NormText string
	User     UserID
	Mode     MatchMode

	// FuzzyBudget overrides the length-based edit-distance budget when
	// positive. Zero means "use the configured thresholds".
	FuzzyBudget int

	Enabled   bool
	CreatedAt time.Time
}

// IsGlobal reports whether the keyword applies to every user.
func (k *Keyword) IsGlobal() bool {
	return k.User == ""
}
