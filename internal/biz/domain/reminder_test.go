package domain

import (
	"testing"
	"time"
)

var testSchedule = []time.Duration{
	0,
	1 * time.Minute,
	2 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

func TestAdvanceWalksSchedule(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &Reminder{UserID: "u1", Status: ReminderActive, FirstDetectedAt: start}

	expected := []time.Duration{1 * time.Minute, 2 * time.Minute, 15 * time.Minute, 60 * time.Minute}
	for i, offset := range expected {
		if !r.Advance(testSchedule, start) {
			t.Fatalf("Advance exhausted early at fire %d", i)
		}
		want := start.Add(offset)
		if !r.NextFireAt.Equal(want) {
			t.Errorf("fire %d: NextFireAt = %v, want %v", i, r.NextFireAt, want)
		}
		if r.FireCount != i+1 {
			t.Errorf("fire %d: FireCount = %d, want %d", i, r.FireCount, i+1)
		}
	}

	// Fifth delivered fire exhausts the schedule.
	if r.Advance(testSchedule, start) {
		t.Error("expected Advance to report exhaustion after last fire")
	}
	if r.Status != ReminderExpired {
		t.Errorf("Status = %s, want expired", r.Status)
	}
	if !r.NextFireAt.IsZero() {
		t.Error("expected NextFireAt cleared in terminal state")
	}
}

func TestAdvanceClampsPastDueToNow(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Minute)
	r := &Reminder{UserID: "u1", Status: ReminderActive, FirstDetectedAt: start, FireCount: 1}

	if !r.Advance(testSchedule, now) {
		t.Fatal("unexpected exhaustion")
	}
	// schedule[2] = +2m is already past; NextFireAt must not be in the past.
	if r.NextFireAt.Before(now) {
		t.Errorf("NextFireAt = %v is before now %v", r.NextFireAt, now)
	}
}

func TestCatchUpSkipsMissedIntervals(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &Reminder{
		UserID:          "u1",
		Status:          ReminderActive,
		FirstDetectedAt: start,
		FireCount:       1,
		NextFireAt:      start.Add(2 * time.Minute),
	}

	// Process was down; 20 minutes elapsed. Slots +2m and +15m were missed;
	// only the latest one should be represented by the catch-up fire.
	now := start.Add(20 * time.Minute)
	if !r.CatchUp(testSchedule, now) {
		t.Fatal("expected a due slot")
	}
	if r.FireCount != 3 {
		t.Errorf("FireCount = %d, want 3 (latest due slot)", r.FireCount)
	}

	// The fire after catch-up lands on the +60m slot.
	if !r.Advance(testSchedule, now) {
		t.Fatal("unexpected exhaustion")
	}
	if want := start.Add(60 * time.Minute); !r.NextFireAt.Equal(want) {
		t.Errorf("NextFireAt = %v, want %v", r.NextFireAt, want)
	}
}

func TestCatchUpBeyondScheduleEndsWithFinalFire(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &Reminder{
		UserID:          "u1",
		Status:          ReminderActive,
		FirstDetectedAt: start,
		NextFireAt:      start,
	}

	now := start.Add(2 * time.Hour)
	if !r.CatchUp(testSchedule, now) {
		t.Fatal("expected a due slot")
	}
	if r.FireCount != len(testSchedule)-1 {
		t.Errorf("FireCount = %d, want %d", r.FireCount, len(testSchedule)-1)
	}
	if r.Advance(testSchedule, now) {
		t.Error("expected exhaustion after the final catch-up fire")
	}
	if r.Status != ReminderExpired {
		t.Errorf("Status = %s, want expired", r.Status)
	}
}
