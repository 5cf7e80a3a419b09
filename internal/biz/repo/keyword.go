package repo

import (
	"context"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// KeywordRepo is the keyword persistence interface.
// Writes must be durable before they return successfully; the in-memory
// snapshot is only swapped after the write lands.
type KeywordRepo interface {
	// Save inserts or updates a keyword. Re-saving an existing keyword is
	// a no-op at the storage level.
	Save(ctx context.Context, kw *domain.Keyword) error

	// Delete removes a keyword by scope and normalized text. It returns
	// domain.ErrNotFound when no such keyword exists.
	Delete(ctx context.Context, user domain.UserID, normText string) error

	// List returns all keywords for one scope (empty user = global).
	List(ctx context.Context, user domain.UserID) ([]*domain.Keyword, error)

	// ListAll returns every stored keyword, used to build the snapshot.
	ListAll(ctx context.Context) ([]*domain.Keyword, error)

	// Close releases the underlying store.
	Close() error
}
