package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// recipientRepo implements the Recipient repository on SQLite.
type recipientRepo struct {
	db *sql.DB
}

// NewRecipientRepo creates a new Recipient repository.
func NewRecipientRepo(db *sql.DB) (repo.RecipientRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recipients (
			user_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			address TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user_id, channel)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipients table: %w", err)
	}
	return &recipientRepo{db: db}, nil
}

// Resolve returns the user's enabled channels and addresses.
func (r *recipientRepo) Resolve(ctx context.Context, user domain.UserID) (*domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel, address FROM recipients
		WHERE user_id = ? AND enabled = 1
		ORDER BY channel
	`, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	defer rows.Close()

	rec := &domain.Recipient{User: user}
	for rows.Next() {
		var channel, address string
		if err := rows.Scan(&channel, &address); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		rec.Addresses = append(rec.Addresses, domain.Address{
			Channel: domain.Channel(channel),
			Value:   address,
		})
	}
	return rec, rows.Err()
}

// ListAll returns every user with at least one enabled channel.
func (r *recipientRepo) ListAll(ctx context.Context) ([]*domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, channel, address FROM recipients
		WHERE enabled = 1
		ORDER BY user_id, channel
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var (
		recipients []*domain.Recipient
		current    *domain.Recipient
	)
	for rows.Next() {
		var user, channel, address string
		if err := rows.Scan(&user, &channel, &address); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		if current == nil || current.User != domain.UserID(user) {
			current = &domain.Recipient{User: domain.UserID(user)}
			recipients = append(recipients, current)
		}
		current.Addresses = append(current.Addresses, domain.Address{
			Channel: domain.Channel(channel),
			Value:   address,
		})
	}
	return recipients, rows.Err()
}

// SetAddress enables or updates one channel address for a user.
func (r *recipientRepo) SetAddress(ctx context.Context, user domain.UserID, addr domain.Address) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recipients (user_id, channel, address, enabled)
		VALUES (?, ?, ?, 1)
	`, string(user), string(addr.Channel), addr.Value)
	if err != nil {
		return fmt.Errorf("failed to set address: %w", err)
	}
	return nil
}

// RemoveAddress disables one channel for a user.
func (r *recipientRepo) RemoveAddress(ctx context.Context, user domain.UserID, channel domain.Channel) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM recipients WHERE user_id = ? AND channel = ?
	`, string(user), string(channel))
	if err != nil {
		return fmt.Errorf("failed to remove address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove address: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (r *recipientRepo) Close() error {
	return r.db.Close()
}
