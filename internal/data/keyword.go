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

// keywordRepo implements the Keyword repository on SQLite.
type keywordRepo struct {
	db *sql.DB
}

// NewKeywordRepo creates a new Keyword repository.
func NewKeywordRepo(db *sql.DB) (repo.KeywordRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS keywords (
			user_id TEXT NOT NULL DEFAULT '',
			norm_text TEXT NOT NULL,
			text TEXT NOT NULL,
			match_mode TEXT NOT NULL DEFAULT 'fuzzy',
			fuzzy_budget INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, norm_text)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create keywords table: %w", err)
	}
	return &keywordRepo{db: db}, nil
}

// Save inserts or updates a keyword.
func (r *keywordRepo) Save(ctx context.Context, kw *domain.Keyword) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO keywords (user_id, norm_text, text, match_mode, fuzzy_budget, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(kw.User),
		kw.NormText,
		kw.Text,
		string(kw.Mode),
		kw.FuzzyBudget,
		boolToInt(kw.Enabled),
		kw.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save keyword: %w", err)
	}
	return nil
}

// Delete removes a keyword by scope and normalized text.
func (r *keywordRepo) Delete(ctx context.Context, user domain.UserID, normText string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM keywords WHERE user_id = ? AND norm_text = ?
	`, string(user), normText)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all keywords for one scope.
func (r *keywordRepo) List(ctx context.Context, user domain.UserID) ([]*domain.Keyword, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, norm_text, text, match_mode, fuzzy_budget, enabled, created_at
		FROM keywords
		WHERE user_id = ?
		ORDER BY created_at
	`, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

// ListAll returns every stored keyword.
func (r *keywordRepo) ListAll(ctx context.Context) ([]*domain.Keyword, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, norm_text, text, match_mode, fuzzy_budget, enabled, created_at
		FROM keywords
		ORDER BY user_id, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

func scanKeywords(rows *sql.Rows) ([]*domain.Keyword, error) {
	var keywords []*domain.Keyword
	for rows.Next() {
		var (
			kw        domain.Keyword
			user      string
			mode      string
			enabled   int
			createdAt int64
		)
		if err := rows.Scan(&user, &kw.NormText, &kw.Text, &mode, &kw.FuzzyBudget, &enabled, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		kw.User = domain.UserID(user)
		kw.Mode = domain.MatchMode(mode)
		kw.Enabled = enabled != 0
		kw.CreatedAt = time.Unix(createdAt, 0)
		keywords = append(keywords, &kw)
	}
	return keywords, rows.Err()
}

// Close closes the database connection.
func (r *keywordRepo) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
