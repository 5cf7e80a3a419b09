package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/matching"
)

func newTestDetect(t *testing.T) (*DetectUsecase, *KeywordUsecase) {
	t.Helper()
	engine, err := matching.NewEngine(matching.DefaultConfig())
	require.NoError(t, err)
	kws, err := NewKeywordUsecase(context.Background(), newMockKeywordRepo(), engine, zap.NewNop())
	require.NoError(t, err)
	return NewDetectUsecase(kws, engine), kws
}

func matchFor(matches []domain.Match, norm string) *domain.Match {
	for i := range matches {
		if matches[i].Keyword.NormText == norm {
			return &matches[i]
		}
	}
	return nil
}

func TestDetectGlobalAndPersonal(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	_, err := kws.AddGlobal(ctx, "urgent")
	require.NoError(t, err)
	_, err = kws.AddPersonal(ctx, "alice", "invoice")
	require.NoError(t, err)
	_, err = kws.AddPersonal(ctx, "bob", "deadline")
	require.NoError(t, err)

	matches := detect.Detect(ctx, "urgent invoice deadline", "", "alice")
	require.Len(t, matches, 2, "bob's keyword must not match for alice")

	global := matchFor(matches, "urgent")
	require.NotNil(t, global)
	assert.True(t, global.Keyword.IsGlobal())

	personal := matchFor(matches, "invoice")
	require.NotNil(t, personal)
	assert.Equal(t, domain.UserID("alice"), personal.Keyword.User)
}

func TestDetectKeywordReportedOnceWithStrongestKind(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	_, err := kws.AddGlobal(ctx, "urgent")
	require.NoError(t, err)

	// Both a fuzzy ("urgemt") and an exact occurrence: one match, exact.
	matches := detect.Detect(ctx, "urgemt then urgent again urgent", "", "")
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchExact, matches[0].Kind)
	assert.Equal(t, "urgent", matches[0].Token)
}

func TestDetectSearchesFilename(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	_, err := kws.AddGlobal(ctx, "invoice")
	require.NoError(t, err)

	matches := detect.Detect(ctx, "please see attached", "invoice_2026.pdf", "")
	require.Len(t, matches, 1)
	assert.Equal(t, domain.SourceFilename, matches[0].Source)
}

func TestDetectIgnoresDisabledKeywords(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	_, err := kws.AddGlobal(ctx, "urgent")
	require.NoError(t, err)
	kws.ListGlobal(ctx)[0].Enabled = false

	assert.Empty(t, detect.Detect(ctx, "urgent", "", ""))
}

func TestDetectMalformedInputYieldsNothing(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	_, err := kws.AddGlobal(ctx, "urgent")
	require.NoError(t, err)

	assert.Empty(t, detect.Detect(ctx, "", "", ""))
	assert.Empty(t, detect.Detect(ctx, "\xff\xfe", "", ""))
}

func TestDetectCrossScriptKeyword(t *testing.T) {
	detect, kws := newTestDetect(t)
	ctx := context.Background()

	// Hebrew keyword entered with a final-form letter matches text using
	// the base form, and vice versa.
	_, err := kws.AddGlobal(ctx, "שלום")
	require.NoError(t, err)

	matches := detect.Detect(ctx, "hello שלום everyone", "", "")
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchExact, matches[0].Kind)
}
