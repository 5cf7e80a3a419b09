package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
	"github.com/keywatch/keywatch/internal/matching"
)

// Snapshot is an immutable view of the keyword set. Detection reads one
// snapshot for its whole run; mutations build and swap a new one.
type Snapshot struct {
	Version  uint64
	Global   []*domain.Keyword
	Personal map[domain.UserID][]*domain.Keyword
}

// KeywordUsecase owns the keyword set: the only mutable matching
// configuration. Every mutation is durable before the snapshot is swapped,
// so a crash between the two never loses an acknowledged edit.
type KeywordUsecase struct {
	repo    repo.KeywordRepo
	engine  *matching.Engine
	log     *zap.Logger
	mu      sync.Mutex // serializes mutations; reads are lock-free
	snap    atomic.Pointer[Snapshot]
	version uint64
}

// NewKeywordUsecase builds the usecase and loads the initial snapshot.
func NewKeywordUsecase(ctx context.Context, kwRepo repo.KeywordRepo, engine *matching.Engine, log *zap.Logger) (*KeywordUsecase, error) {
	uc := &KeywordUsecase{repo: kwRepo, engine: engine, log: log}
	if err := uc.reload(ctx); err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return uc, nil
}

// Snapshot returns the current keyword set.
func (uc *KeywordUsecase) Snapshot() *Snapshot {
	return uc.snap.Load()
}

// AddGlobal adds a keyword visible to all recipients. The returned bool is
// false when the keyword already existed (an idempotent no-op).
func (uc *KeywordUsecase) AddGlobal(ctx context.Context, word string) (bool, error) {
	return uc.add(ctx, "", word)
}

// AddPersonal adds a keyword scoped to one user.
func (uc *KeywordUsecase) AddPersonal(ctx context.Context, user domain.UserID, word string) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("personal keyword needs a user")
	}
	return uc.add(ctx, user, word)
}

func (uc *KeywordUsecase) add(ctx context.Context, user domain.UserID, word string) (bool, error) {
	norm := uc.engine.NormalizeWord(word)
	if norm == "" {
		return false, fmt.Errorf("keyword %q has no matchable characters", word)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.find(user, norm) != nil {
		return false, nil
	}

	kw := &domain.Keyword{
		Text:      word,
		NormText:  norm,
		User:      user,
		Mode:      domain.MatchModeFuzzy,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := uc.repo.Save(ctx, kw); err != nil {
		// Snapshot stays untouched so memory matches durable state.
		return false, fmt.Errorf("save keyword: %w", err)
	}
	if err := uc.reload(ctx); err != nil {
		return false, fmt.Errorf("reload keywords: %w", err)
	}
	uc.log.Info("keyword added",
		zap.String("word", norm),
		zap.String("user", string(user)))
	return true, nil
}

// RemoveGlobal removes a global keyword. Returns domain.ErrNotFound when
// the keyword does not exist.
func (uc *KeywordUsecase) RemoveGlobal(ctx context.Context, word string) error {
	return uc.remove(ctx, "", word)
}

// RemovePersonal removes one user's keyword.
func (uc *KeywordUsecase) RemovePersonal(ctx context.Context, user domain.UserID, word string) error {
	return uc.remove(ctx, user, word)
}

func (uc *KeywordUsecase) remove(ctx context.Context, user domain.UserID, word string) error {
	norm := uc.engine.NormalizeWord(word)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.find(user, norm) == nil {
		return domain.ErrNotFound
	}
	if err := uc.repo.Delete(ctx, user, norm); err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	if err := uc.reload(ctx); err != nil {
		return fmt.Errorf("reload keywords: %w", err)
	}
	uc.log.Info("keyword removed",
		zap.String("word", norm),
		zap.String("user", string(user)))
	return nil
}

// ListGlobal returns the current global keywords.
func (uc *KeywordUsecase) ListGlobal(ctx context.Context) []*domain.Keyword {
	return uc.Snapshot().Global
}

// ListPersonal returns one user's keywords.
func (uc *KeywordUsecase) ListPersonal(ctx context.Context, user domain.UserID) []*domain.Keyword {
	return uc.Snapshot().Personal[user]
}

func (uc *KeywordUsecase) find(user domain.UserID, norm string) *domain.Keyword {
	snap := uc.Snapshot()
	list := snap.Global
	if user != "" {
		list = snap.Personal[user]
	}
	for _, kw := range list {
		if kw.NormText == norm {
			return kw
		}
	}
	return nil
}

// reload rebuilds the snapshot from durable storage and swaps it in.
func (uc *KeywordUsecase) reload(ctx context.Context) error {
	all, err := uc.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	snap := &Snapshot{Personal: make(map[domain.UserID][]*domain.Keyword)}
	for _, kw := range all {
		if kw.IsGlobal() {
			snap.Global = append(snap.Global, kw)
		} else {
			snap.Personal[kw.User] = append(snap.Personal[kw.User], kw)
		}
	}
	uc.version++
	snap.Version = uc.version
	uc.snap.Store(snap)
	return nil
}
