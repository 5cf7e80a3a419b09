package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
)

var reminderBucket = []byte("reminders")

// reminderCache implements the Reminder repository on a local bbolt file.
// It backs the fallback policy: a full, always-available copy of the
// reminder table that keeps escalation alive when the primary store is
// unreachable.
type reminderCache struct {
	db *bolt.DB
}

// NewReminderCache opens (or creates) the local cache file.
func NewReminderCache(path string) (repo.ReminderRepo, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open reminder cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reminderBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &reminderCache{db: db}, nil
}

func (c *reminderCache) Upsert(ctx context.Context, rem *domain.Reminder) error {
	buf, err := json.Marshal(rem)
	if err != nil {
		return fmt.Errorf("failed to encode reminder: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reminderBucket).Put([]byte(rem.UserID), buf)
	})
	if err != nil {
		return fmt.Errorf("failed to cache reminder: %w", err)
	}
	return nil
}

func (c *reminderCache) Get(ctx context.Context, user domain.UserID) (*domain.Reminder, error) {
	var rem *domain.Reminder
	err := c.db.View(func(tx *bolt.Tx) error {
		buf := tx.Bucket(reminderBucket).Get([]byte(user))
		if buf == nil {
			return nil
		}
		rem = &domain.Reminder{}
		return json.Unmarshal(buf, rem)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cached reminder: %w", err)
	}
	return rem, nil
}

func (c *reminderCache) Delete(ctx context.Context, user domain.UserID) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reminderBucket).Delete([]byte(user))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cached reminder: %w", err)
	}
	return nil
}

func (c *reminderCache) ListActive(ctx context.Context) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(reminderBucket).ForEach(func(_, v []byte) error {
			var rem domain.Reminder
			if err := json.Unmarshal(v, &rem); err != nil {
				return err
			}
			if rem.Active() {
				reminders = append(reminders, &rem)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cached reminders: %w", err)
	}
	return reminders, nil
}

func (c *reminderCache) Close() error {
	return c.db.Close()
}

// fallbackReminderRepo combines the durable primary store with the local
// cache: writes go through to both (a primary failure fails the call, a
// cache failure is only logged), reads fall back to the cache when the
// primary errors. Core logic depends on repo.ReminderRepo and never sees
// which backend answered.
type fallbackReminderRepo struct {
	primary repo.ReminderRepo
	cache   repo.ReminderRepo
	log     *zap.Logger
}

// NewFallbackReminderRepo wraps primary with a local cache.
func NewFallbackReminderRepo(primary, cache repo.ReminderRepo, log *zap.Logger) repo.ReminderRepo {
	return &fallbackReminderRepo{primary: primary, cache: cache, log: log}
}

func (f *fallbackReminderRepo) Upsert(ctx context.Context, rem *domain.Reminder) error {
	if err := f.primary.Upsert(ctx, rem); err != nil {
		return err
	}
	if err := f.cache.Upsert(ctx, rem); err != nil {
		f.log.Warn("reminder cache write failed", zap.Error(err))
	}
	return nil
}

func (f *fallbackReminderRepo) Get(ctx context.Context, user domain.UserID) (*domain.Reminder, error) {
	rem, err := f.primary.Get(ctx, user)
	if err != nil {
		f.log.Warn("primary reminder read failed, using cache", zap.Error(err))
		return f.cache.Get(ctx, user)
	}
	return rem, nil
}

func (f *fallbackReminderRepo) Delete(ctx context.Context, user domain.UserID) error {
	if err := f.primary.Delete(ctx, user); err != nil {
		return err
	}
	if err := f.cache.Delete(ctx, user); err != nil {
		f.log.Warn("reminder cache delete failed", zap.Error(err))
	}
	return nil
}

func (f *fallbackReminderRepo) ListActive(ctx context.Context) ([]*domain.Reminder, error) {
	reminders, err := f.primary.ListActive(ctx)
	if err != nil {
		f.log.Warn("primary reminder list failed, using cache", zap.Error(err))
		return f.cache.ListActive(ctx)
	}
	return reminders, nil
}

func (f *fallbackReminderRepo) Close() error {
	err := f.primary.Close()
	if cerr := f.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
