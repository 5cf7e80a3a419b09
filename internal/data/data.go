package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all repositories.
type Repositories struct {
	Keyword   repo.KeywordRepo
	Reminder  repo.ReminderRepo
	Recipient repo.RecipientRepo

	db *sql.DB
}

// NewRepositories opens the SQLite database and the local reminder cache
// and wires all repositories.
func NewRepositories(dbPath string, log *zap.Logger) (*Repositories, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	keywordRepo, err := NewKeywordRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	reminderRepo, err := NewReminderRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	recipientRepo, err := NewRecipientRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// The cache lives next to the primary database file.
	cachePath := filepath.Join(dir, "reminders-cache.db")
	cache, err := NewReminderCache(cachePath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Keyword:   keywordRepo,
		Reminder:  NewFallbackReminderRepo(reminderRepo, cache, log),
		Recipient: recipientRepo,
		db:        db,
	}, nil
}

// Close closes every underlying store.
func (r *Repositories) Close() error {
	// The SQLite repos share one sql.DB; the reminder repo also owns the
	// bbolt cache file.
	err := r.Reminder.Close()
	if cerr := r.db.Close(); err == nil {
		err = cerr
	}
	return err
}
