package usecase

import (
	"context"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/matching"
)

// DetectUsecase runs the detection pass: normalize the inbound text and
// filename, compare every token against the enabled keywords, and report
// each keyword at most once with its strongest match. Stateless with
// respect to the snapshot it reads; safe to call concurrently.
type DetectUsecase struct {
	keywords *KeywordUsecase
	engine   *matching.Engine
}

// NewDetectUsecase creates a detection usecase.
func NewDetectUsecase(keywords *KeywordUsecase, engine *matching.Engine) *DetectUsecase {
	return &DetectUsecase{keywords: keywords, engine: engine}
}

// sourcedToken pairs a token with the field it came from.
type sourcedToken struct {
	matching.Token
	source domain.SourceField
}

// Detect scans text plus the optional filename for the given user. The
// result contains every enabled global keyword and every enabled personal
// keyword of that user that matched at least one token.
func (uc *DetectUsecase) Detect(ctx context.Context, text, filename string, user domain.UserID) []domain.Match {
	var tokens []sourcedToken
	for _, t := range uc.engine.Normalize(filename) {
		tokens = append(tokens, sourcedToken{Token: t, source: domain.SourceFilename})
	}
	for _, t := range uc.engine.Normalize(text) {
		tokens = append(tokens, sourcedToken{Token: t, source: domain.SourceBody})
	}
	if len(tokens) == 0 {
		return nil
	}

	snap := uc.keywords.Snapshot()
	var matches []domain.Match
	scan := func(list []*domain.Keyword) {
		for _, kw := range list {
			if !kw.Enabled {
				continue
			}
			if m, ok := uc.best(tokens, kw); ok {
				matches = append(matches, m)
			}
		}
	}
	scan(snap.Global)
	if user != "" {
		scan(snap.Personal[user])
	}
	return matches
}

// best returns the strongest match of kw across all tokens, early-exiting
// once an exact match is found.
func (uc *DetectUsecase) best(tokens []sourcedToken, kw *domain.Keyword) (domain.Match, bool) {
	var found domain.Match
	for _, t := range tokens {
		kind := uc.engine.MatchKeyword(t.Text, kw)
		if kind == domain.MatchNone {
			continue
		}
		if kind > found.Kind {
			found = domain.Match{Keyword: *kw, Token: t.Text, Kind: kind, Source: t.source}
		}
		if kind == domain.MatchExact {
			break
		}
	}
	return found, found.Kind != domain.MatchNone
}
