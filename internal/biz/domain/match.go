package domain

// MatchKind ranks how a token matched a keyword. Higher values are
// stronger; detection keeps only the strongest kind per keyword.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSubstring
	MatchFuzzy
	MatchExact
)

func (k MatchKind) String() string {
	switch k {
	case MatchSubstring:
		return "substring"
	case MatchFuzzy:
		return "fuzzy"
	case MatchExact:
		return "exact"
	default:
		return "none"
	}
}

// SourceField names the part of an inbound event a token came from.
type SourceField string

const (
	SourceBody     SourceField = "body"
	SourceFilename SourceField = "filename"
)

// Match is one detection result: a keyword, the token that hit it, and
// how.
type Match struct {
	Keyword Keyword
	Token   string
	Kind    MatchKind
	Source  SourceField
}
