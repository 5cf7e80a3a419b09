package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
)

// ReminderNotifier delivers one reminder fire. Delivery failures are the
// dispatcher's business; a fire always advances the schedule.
type ReminderNotifier interface {
	NotifyReminder(ctx context.Context, rem *domain.Reminder, elapsed time.Duration)
}

// timerHandle abstracts time.Timer so tests can fire deterministically.
type timerHandle interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) timerHandle

func realTimer(d time.Duration, fn func()) timerHandle {
	return time.AfterFunc(d, fn)
}

var errEscalatorStopped = errors.New("escalator stopped")

// Escalator drives the per-user reminder state machine:
// Idle -> Active -> {Acknowledged, Expired}, with Active -> Active on each
// fire and on re-detection. Exactly one timer is live per user; arming
// replaces the previous handle atomically under the user's lock. The store
// is the source of truth — timers are a derived cache rebuilt by Recover.
type Escalator struct {
	store    repo.ReminderRepo
	notifier ReminderNotifier
	schedule []time.Duration
	log      *zap.Logger

	now      func() time.Time
	newTimer timerFactory

	mu     sync.Mutex
	users  map[domain.UserID]*userTimer
	closed bool
}

// userTimer serializes all state transitions of one user. gen invalidates
// a pending fire: a callback that popped before Stop took effect sees a
// stale generation and aborts without dispatching.
type userTimer struct {
	mu    sync.Mutex
	gen   uint64
	timer timerHandle
}

// NewEscalator creates the scheduler. schedule holds the fire offsets from
// first detection; the first entry is expected to be zero (immediate fire).
func NewEscalator(store repo.ReminderRepo, notifier ReminderNotifier, schedule []time.Duration, log *zap.Logger) *Escalator {
	return &Escalator{
		store:    store,
		notifier: notifier,
		schedule: schedule,
		log:      log,
		now:      time.Now,
		newTimer: realTimer,
		users:    make(map[domain.UserID]*userTimer),
	}
}

func (e *Escalator) entry(user domain.UserID) *userTimer {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[user]
	if !ok {
		u = &userTimer{}
		e.users[user] = u
	}
	return u
}

// Trigger starts (or restarts) the user's reminder for a fresh personal
// match. An existing active reminder is replaced: pending timer cancelled,
// fire count reset, new payload, fresh first-detection time. The new record
// is durable before the old timer is touched, so a persistence failure
// leaves both memory and storage on the previous reminder.
func (e *Escalator) Trigger(ctx context.Context, user domain.UserID, keyword string, payload domain.Payload) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errEscalatorStopped
	}
	e.mu.Unlock()

	u := e.entry(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	now := e.now()
	rem := &domain.Reminder{
		UserID:          user,
		Keyword:         keyword,
		Payload:         payload,
		Status:          domain.ReminderActive,
		FirstDetectedAt: now,
		NextFireAt:      now.Add(e.schedule[0]),
	}
	if err := e.store.Upsert(ctx, rem); err != nil {
		return err
	}

	e.log.Info("reminder armed",
		zap.String("user", string(user)),
		zap.String("keyword", keyword))
	e.rearm(u, user, e.schedule[0])
	return nil
}

// rearm cancels the pending timer (if any) and arms a new one. Caller
// holds u.mu.
func (e *Escalator) rearm(u *userTimer, user domain.UserID, delay time.Duration) {
	u.gen++
	if u.timer != nil {
		u.timer.Stop()
	}
	if delay < 0 {
		delay = 0
	}
	gen := u.gen
	u.timer = e.newTimer(delay, func() { e.fire(user, gen) })
}

// fire delivers one scheduled notification and advances the schedule.
func (e *Escalator) fire(user domain.UserID, gen uint64) {
	u := e.entry(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.gen != gen {
		// Cancelled or restarted after this timer popped.
		return
	}

	ctx := context.Background()
	rem, err := e.store.Get(ctx, user)
	if err != nil {
		e.log.Error("reminder fire: load failed", zap.String("user", string(user)), zap.Error(err))
		return
	}
	if rem == nil || !rem.Active() {
		u.timer = nil
		return
	}

	now := e.now()
	// After downtime the pending slot may lag wall time; jump to the most
	// recently due slot instead of replaying every missed interval.
	rem.CatchUp(e.schedule, now)

	e.notifier.NotifyReminder(ctx, rem, rem.Elapsed(now))

	if rem.Advance(e.schedule, now) {
		if err := e.store.Upsert(ctx, rem); err != nil {
			e.log.Error("reminder fire: persist failed", zap.String("user", string(user)), zap.Error(err))
		}
		e.rearm(u, user, rem.NextFireAt.Sub(now))
		return
	}

	// Schedule exhausted.
	if err := e.store.Upsert(ctx, rem); err != nil {
		e.log.Error("reminder expiry: persist failed", zap.String("user", string(user)), zap.Error(err))
	}
	u.timer = nil
	e.log.Info("reminder expired",
		zap.String("user", string(user)),
		zap.String("keyword", rem.Keyword),
		zap.Int("fires", rem.FireCount))
}

// Acknowledge cancels the user's active reminder. It returns false with a
// nil error when there is nothing to acknowledge, so callers can answer
// "nothing to acknowledge" instead of reporting a failure. Idempotent.
func (e *Escalator) Acknowledge(ctx context.Context, user domain.UserID) (bool, error) {
	u := e.entry(user)
	u.mu.Lock()
	defer u.mu.Unlock()

	rem, err := e.store.Get(ctx, user)
	if err != nil {
		return false, err
	}
	if rem == nil || !rem.Active() {
		return false, nil
	}

	rem.Status = domain.ReminderAcknowledged
	rem.NextFireAt = time.Time{}
	if err := e.store.Upsert(ctx, rem); err != nil {
		// Durable state unchanged; the pending timer stays armed so the
		// reminder keeps firing rather than silently stalling.
		return false, err
	}

	u.gen++
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	e.log.Info("reminder acknowledged",
		zap.String("user", string(user)),
		zap.String("keyword", rem.Keyword))
	return true, nil
}

// Recover re-arms every active reminder found in durable storage. Past-due
// reminders fire once immediately and then resume the schedule; future
// ones get a timer for the remaining delay.
func (e *Escalator) Recover(ctx context.Context) error {
	reminders, err := e.store.ListActive(ctx)
	if err != nil {
		return err
	}
	now := e.now()
	for _, rem := range reminders {
		u := e.entry(rem.UserID)
		u.mu.Lock()
		delay := rem.NextFireAt.Sub(now)
		e.rearm(u, rem.UserID, delay)
		u.mu.Unlock()
		e.log.Info("reminder recovered",
			zap.String("user", string(rem.UserID)),
			zap.Duration("delay", delay))
	}
	return nil
}

// Stop cancels every live timer. In-flight fires finish; no new fire
// starts after Stop returns.
func (e *Escalator) Stop() {
	e.mu.Lock()
	e.closed = true
	users := make([]*userTimer, 0, len(e.users))
	for _, u := range e.users {
		users = append(users, u)
	}
	e.mu.Unlock()

	for _, u := range users {
		u.mu.Lock()
		u.gen++
		if u.timer != nil {
			u.timer.Stop()
			u.timer = nil
		}
		u.mu.Unlock()
	}
}
