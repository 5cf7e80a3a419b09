package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// reminderRepo implements the Reminder repository on SQLite. The user_id
// primary key enforces the one-reminder-per-user invariant at the storage
// level: a restart detection simply replaces the row.
type reminderRepo struct {
	db *sql.DB
}

// NewReminderRepo creates a new Reminder repository.
func NewReminderRepo(db *sql.DB) (repo.ReminderRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			user_id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL DEFAULT '',
			attachment TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			first_detected_at INTEGER NOT NULL,
			next_fire_at INTEGER NOT NULL DEFAULT 0,
			fire_count INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders table: %w", err)
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reminders_status ON reminders(status)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &reminderRepo{db: db}, nil
}

// Upsert writes the full reminder row.
func (r *reminderRepo) Upsert(ctx context.Context, rem *domain.Reminder) error {
	var nextFire int64
	if !rem.NextFireAt.IsZero() {
		nextFire = rem.NextFireAt.Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reminders
			(user_id, keyword, message, sender, group_id, attachment, status, first_detected_at, next_fire_at, fire_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(rem.UserID),
		rem.Keyword,
		rem.Payload.Message,
		rem.Payload.Sender,
		rem.Payload.Group,
		rem.Payload.AttachmentSummary,
		string(rem.Status),
		rem.FirstDetectedAt.Unix(),
		nextFire,
		rem.FireCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save reminder: %w", err)
	}
	return nil
}

// Get returns the user's reminder, or nil when none exists.
func (r *reminderRepo) Get(ctx context.Context, user domain.UserID) (*domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, keyword, message, sender, group_id, attachment, status, first_detected_at, next_fire_at, fire_count
		FROM reminders
		WHERE user_id = ?
	`, string(user))

	rem, err := scanReminder(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder: %w", err)
	}
	return rem, nil
}

// Delete removes the user's reminder row.
func (r *reminderRepo) Delete(ctx context.Context, user domain.UserID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ?`, string(user))
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// ListActive returns every reminder still in the Active state.
func (r *reminderRepo) ListActive(ctx context.Context) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, keyword, message, sender, group_id, attachment, status, first_detected_at, next_fire_at, fire_count
		FROM reminders
		WHERE status = ?
		ORDER BY next_fire_at
	`, string(domain.ReminderActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func scanReminder(scan func(...any) error) (*domain.Reminder, error) {
	var (
		rem       domain.Reminder
		user      string
		status    string
		firstAt   int64
		nextAt    int64
		fireCount int
	)
	err := scan(&user, &rem.Keyword, &rem.Payload.Message, &rem.Payload.Sender,
		&rem.Payload.Group, &rem.Payload.AttachmentSummary, &status, &firstAt, &nextAt, &fireCount)
	if err != nil {
		return nil, err
	}
	rem.UserID = domain.UserID(user)
	rem.Status = domain.ReminderStatus(status)
	rem.FirstDetectedAt = time.Unix(firstAt, 0)
	if nextAt != 0 {
		rem.NextFireAt = time.Unix(nextAt, 0)
	}
	rem.FireCount = fireCount
	return &rem, nil
}

// Close closes the database connection.
func (r *reminderRepo) Close() error {
	return r.db.Close()
}
