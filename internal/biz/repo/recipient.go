package repo

import (
	"context"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// RecipientRepo resolves users to their enabled delivery addresses.
type RecipientRepo interface {
	// Resolve returns the user's enabled channels and addresses.
	Resolve(ctx context.Context, user domain.UserID) (*domain.Recipient, error)

	// ListAll returns the full authorized-recipient set, the audience of
	// a global keyword notification.
	ListAll(ctx context.Context) ([]*domain.Recipient, error)

	// SetAddress enables (or updates) one channel address for a user.
	SetAddress(ctx context.Context, user domain.UserID, addr domain.Address) error

	// RemoveAddress disables one channel for a user. Returns
	// domain.ErrNotFound when the channel was not configured.
	RemoveAddress(ctx context.Context, user domain.UserID, channel domain.Channel) error

	// Close releases the underlying store.
	Close() error
}
