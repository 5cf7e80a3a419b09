package matching

// Config is the data-driven part of the matching engine: distance
// thresholds, the confusable blacklist, derivational suffixes and the
// per-script equivalence tables. It is loaded from YAML at startup and can
// be swapped at runtime; the algorithms never hard-code language data.
type Config struct {
	// Thresholds are evaluated in order; the first rule whose MaxLen is >=
	// the keyword rune length wins. MaxLen 0 means "no upper bound".
	Thresholds []ThresholdRule `yaml:"thresholds"`

	// Confusables are (token, keyword) pairs that must never match even
	// when they are within the edit-distance budget.
	Confusables []ConfusablePair `yaml:"confusables"`

	// Suffixes lists derivational suffixes per script name. A substring
	// occurrence followed immediately by one of these is rejected.
	Suffixes map[string][]string `yaml:"suffixes"`

	// Scripts holds per-script orthographic equivalence tables.
	Scripts []ScriptTable `yaml:"scripts"`
}

// ThresholdRule buckets the fuzzy edit-distance budget by keyword length.
type ThresholdRule struct {
	MaxLen   int `yaml:"max_len"`
	Distance int `yaml:"distance"`
}

// ConfusablePair suppresses a known false-positive fuzzy match.
type ConfusablePair struct {
	Token   string `yaml:"token"`
	Keyword string `yaml:"keyword"`
}

// ScriptTable maps orthographic variants of one script to their base form.
type ScriptTable struct {
	Name string `yaml:"name"`
	// Fold maps a single character to its canonical equivalent, e.g. a
	// Hebrew word-final glyph to its base letter.
	Fold map[string]string `yaml:"fold"`
	// Strip lists single characters removed entirely before comparison,
	// e.g. the Cyrillic soft sign.
	Strip []string `yaml:"strip"`
}

// DefaultConfig returns the built-in language data used when no matching
// config file is present.
func DefaultConfig() Config {
	return Config{
		Thresholds: []ThresholdRule{
			{MaxLen: 4, Distance: 1},
			{MaxLen: 8, Distance: 1},
			{MaxLen: 0, Distance: 2},
		},
		Confusables: []ConfusablePair{
			{Token: "cash", Keyword: "crash"},
			{Token: "there", Keyword: "three"},
		},
		Suffixes: map[string][]string{
			"latin": {"ing", "ly", "ed", "er", "est", "ness", "ful"},
		},
		Scripts: []ScriptTable{
			{
				Name: "hebrew",
				Fold: map[string]string{
					"ך": "כ",
					"ם": "מ",
					"ן": "נ",
					"ף": "פ",
					"ץ": "צ",
				},
			},
			{
				Name:  "cyrillic",
				Strip: []string{"ъ", "ь"},
			},
		},
	}
}
