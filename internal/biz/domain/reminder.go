package domain

import "time"

// ReminderStatus is the state of a reminder's lifecycle. A reminder is
// created Active and ends in exactly one of the terminal states.
type ReminderStatus string

const (
	ReminderActive       ReminderStatus = "active"
	ReminderAcknowledged ReminderStatus = "acknowledged"
	ReminderExpired      ReminderStatus = "expired"
)

// Payload carries the context of the detection that armed a reminder, so
// every escalation notification can say what it is about.
type Payload struct {
	Message           string
	Sender            string
	Group             string
	AttachmentSummary string
}

// Reminder is one user's pending escalation. At most one exists per user;
// a new detection replaces it rather than stacking a second one.
//
// FireCount is the number of notifications already delivered; the pending
// schedule slot is always index FireCount. All offsets are measured from
// FirstDetectedAt.
type Reminder struct {
	UserID          UserID
	Keyword         string
	Payload         Payload
	Status          ReminderStatus
	FirstDetectedAt time.Time
	NextFireAt      time.Time
	FireCount       int
}

// Active reports whether the reminder still escalates.
func (r *Reminder) Active() bool {
	return r.Status == ReminderActive
}

// Elapsed is the time since first detection.
func (r *Reminder) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.FirstDetectedAt)
}

// Advance records one delivered fire and moves to the next schedule slot.
// It returns false when the schedule is exhausted; the reminder is then
// Expired with NextFireAt cleared. A next slot already in the past is
// clamped to now so the timer never arms with a negative delay.
func (r *Reminder) Advance(schedule []time.Duration, now time.Time) bool {
	r.FireCount++
	if r.FireCount >= len(schedule) {
		r.Status = ReminderExpired
		r.NextFireAt = time.Time{}
		return false
	}
	next := r.FirstDetectedAt.Add(schedule[r.FireCount])
	if next.Before(now) {
		next = now
	}
	r.NextFireAt = next
	return true
}

// CatchUp realigns the pending slot with wall time after downtime: missed
// intervals collapse into the single most recently due slot, so recovery
// fires once instead of replaying the backlog. It returns whether any slot
// is due; a reminder fired on time is already on its due slot and is left
// unchanged.
func (r *Reminder) CatchUp(schedule []time.Duration, now time.Time) bool {
	due := -1
	for i := r.FireCount; i < len(schedule); i++ {
		if r.FirstDetectedAt.Add(schedule[i]).After(now) {
			break
		}
		due = i
	}
	if due < 0 {
		return false
	}
	r.FireCount = due
	return true
}
