package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/matching"
)

// Mock implementations

type mockKeywordRepo struct {
	keywords map[string]*domain.Keyword // key: user + "\x00" + norm
	saveErr  error
}

func newMockKeywordRepo() *mockKeywordRepo {
	return &mockKeywordRepo{keywords: make(map[string]*domain.Keyword)}
}

func kwKey(user domain.UserID, norm string) string {
	return string(user) + "\x00" + norm
}

func (m *mockKeywordRepo) Save(ctx context.Context, kw *domain.Keyword) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.keywords[kwKey(kw.User, kw.NormText)] = kw
	return nil
}

func (m *mockKeywordRepo) Delete(ctx context.Context, user domain.UserID, norm string) error {
	key := kwKey(user, norm)
	if _, ok := m.keywords[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.keywords, key)
	return nil
}

func (m *mockKeywordRepo) List(ctx context.Context, user domain.UserID) ([]*domain.Keyword, error) {
	var out []*domain.Keyword
	for _, kw := range m.keywords {
		if kw.User == user {
			out = append(out, kw)
		}
	}
	return out, nil
}

func (m *mockKeywordRepo) ListAll(ctx context.Context) ([]*domain.Keyword, error) {
	var out []*domain.Keyword
	for _, kw := range m.keywords {
		out = append(out, kw)
	}
	return out, nil
}

func (m *mockKeywordRepo) Close() error { return nil }

func newTestKeywords(t *testing.T, repo *mockKeywordRepo) *KeywordUsecase {
	t.Helper()
	engine, err := matching.NewEngine(matching.DefaultConfig())
	require.NoError(t, err)
	uc, err := NewKeywordUsecase(context.Background(), repo, engine, zap.NewNop())
	require.NoError(t, err)
	return uc
}

// Tests

func TestAddGlobalIsIdempotent(t *testing.T) {
	repo := newMockKeywordRepo()
	uc := newTestKeywords(t, repo)
	ctx := context.Background()

	added, err := uc.AddGlobal(ctx, "Urgent")
	require.NoError(t, err)
	assert.True(t, added)

	// Same word with different casing normalizes to the same keyword.
	added, err = uc.AddGlobal(ctx, "URGENT")
	require.NoError(t, err)
	assert.False(t, added, "re-adding must be a reported no-op")

	assert.Len(t, uc.ListGlobal(ctx), 1)
}

func TestRemoveMissingKeywordReportsNotFound(t *testing.T) {
	uc := newTestKeywords(t, newMockKeywordRepo())

	err := uc.RemoveGlobal(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPersonalKeywordsAreScoped(t *testing.T) {
	uc := newTestKeywords(t, newMockKeywordRepo())
	ctx := context.Background()

	_, err := uc.AddPersonal(ctx, "alice", "invoice")
	require.NoError(t, err)
	_, err = uc.AddPersonal(ctx, "bob", "invoice")
	require.NoError(t, err)

	assert.Len(t, uc.ListPersonal(ctx, "alice"), 1)
	assert.Len(t, uc.ListPersonal(ctx, "bob"), 1)
	assert.Empty(t, uc.ListGlobal(ctx))

	require.NoError(t, uc.RemovePersonal(ctx, "alice", "invoice"))
	assert.Empty(t, uc.ListPersonal(ctx, "alice"))
	assert.Len(t, uc.ListPersonal(ctx, "bob"), 1, "removal must not cross user scopes")
}

func TestPersistenceFailureLeavesSnapshotUntouched(t *testing.T) {
	repo := newMockKeywordRepo()
	uc := newTestKeywords(t, repo)
	ctx := context.Background()

	repo.saveErr = errors.New("disk full")
	before := uc.Snapshot().Version

	_, err := uc.AddGlobal(ctx, "urgent")
	require.Error(t, err)
	assert.Equal(t, before, uc.Snapshot().Version, "snapshot must not change on a failed write")
	assert.Empty(t, uc.ListGlobal(ctx))
}

func TestMutationsSwapVersionedSnapshot(t *testing.T) {
	uc := newTestKeywords(t, newMockKeywordRepo())
	ctx := context.Background()

	v0 := uc.Snapshot().Version
	_, err := uc.AddGlobal(ctx, "urgent")
	require.NoError(t, err)
	v1 := uc.Snapshot().Version
	assert.Greater(t, v1, v0)

	// A snapshot taken before a mutation is not mutated in place.
	old := uc.Snapshot()
	_, err = uc.AddGlobal(ctx, "deadline")
	require.NoError(t, err)
	assert.Len(t, old.Global, 1)
	assert.Len(t, uc.Snapshot().Global, 2)
}

func TestAddRejectsUnmatchableWord(t *testing.T) {
	uc := newTestKeywords(t, newMockKeywordRepo())

	_, err := uc.AddGlobal(context.Background(), "!!!")
	assert.Error(t, err)
}
