// Package matching implements the language-aware normalization and
// typo-tolerant keyword matching core. All language data (equivalence
// tables, thresholds, confusables, suffixes) comes from Config; the engine
// holds it as an atomically swapped snapshot so a reload never disturbs an
// in-flight detection.
package matching

import (
	"fmt"
	"sync/atomic"
	"unicode/utf8"
)

// Engine is the shared matcher + normalizer. Safe for concurrent use.
type Engine struct {
	cfg atomic.Pointer[compiled]
}

// compiled is the immutable, lookup-optimized form of a Config.
type compiled struct {
	thresholds  []ThresholdRule
	confusables map[string]struct{} // "token\x00keyword"
	suffixes    map[Script][]string
	fold        map[rune]rune
	strip       map[rune]struct{}
}

// NewEngine compiles cfg and returns a ready engine.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{}
	if err := e.SetConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// SetConfig validates and atomically installs a new config. On error the
// previously installed config stays in effect.
func (e *Engine) SetConfig(cfg Config) error {
	c, err := compile(cfg)
	if err != nil {
		return err
	}
	e.cfg.Store(c)
	return nil
}

func (e *Engine) current() *compiled {
	return e.cfg.Load()
}

func compile(cfg Config) (*compiled, error) {
	c := &compiled{
		thresholds:  cfg.Thresholds,
		confusables: make(map[string]struct{}, len(cfg.Confusables)),
		suffixes:    make(map[Script][]string, len(cfg.Suffixes)),
		fold:        make(map[rune]rune),
		strip:       make(map[rune]struct{}),
	}
	if len(cfg.Thresholds) == 0 {
		return nil, fmt.Errorf("matching config: no distance thresholds")
	}
	for _, t := range cfg.Thresholds {
		if t.Distance < 0 {
			return nil, fmt.Errorf("matching config: negative distance %d", t.Distance)
		}
	}
	for _, p := range cfg.Confusables {
		c.confusables[p.Token+"\x00"+p.Keyword] = struct{}{}
	}
	for name, list := range cfg.Suffixes {
		script, err := scriptByName(name)
		if err != nil {
			return nil, err
		}
		c.suffixes[script] = list
	}
	for _, table := range cfg.Scripts {
		if _, err := scriptByName(table.Name); err != nil {
			return nil, err
		}
		for from, to := range table.Fold {
			fr, okFrom := singleRune(from)
			tr, okTo := singleRune(to)
			if !okFrom || !okTo {
				return nil, fmt.Errorf("matching config: fold entry %q -> %q must map single characters", from, to)
			}
			c.fold[fr] = tr
		}
		for _, s := range table.Strip {
			r, ok := singleRune(s)
			if !ok {
				return nil, fmt.Errorf("matching config: strip entry %q must be a single character", s)
			}
			c.strip[r] = struct{}{}
		}
	}
	return c, nil
}

func singleRune(s string) (rune, bool) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, false
	}
	return r, true
}
