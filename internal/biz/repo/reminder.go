package repo

import (
	"context"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// ReminderRepo is the durable reminder table. It is the source of truth
// for the escalation state machine; in-memory timers are derived from it.
type ReminderRepo interface {
	// Upsert writes the full reminder row, replacing any previous
	// reminder for the same user.
	Upsert(ctx context.Context, rem *domain.Reminder) error

	// Get returns the user's reminder, or nil when none exists.
	Get(ctx context.Context, user domain.UserID) (*domain.Reminder, error)

	// Delete removes the user's reminder row.
	Delete(ctx context.Context, user domain.UserID) error

	// ListActive returns every reminder still in the Active state,
	// used to re-arm timers after a restart.
	ListActive(ctx context.Context) ([]*domain.Reminder, error)

	// Close releases the underlying store.
	Close() error
}
