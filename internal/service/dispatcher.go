package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
)

// Target identifies one delivery attempt in an outcome map.
type Target struct {
	User    domain.UserID
	Channel domain.Channel
}

// Result is the final state of one (recipient, channel) delivery.
type Result struct {
	OK       bool
	Attempts int
	Err      error
}

// Outcome maps every attempted (recipient, channel) pair to its result.
// A failed channel never hides or blocks another one; there is no
// aggregate error.
type Outcome map[Target]Result

// Failed reports whether any delivery in the outcome failed.
func (o Outcome) Failed() bool {
	for _, r := range o {
		if !r.OK {
			return true
		}
	}
	return false
}

// Dispatcher fans one logical notification out across all channels of all
// recipients, in parallel, with bounded retries per channel attempt.
type Dispatcher struct {
	senders  map[domain.Channel]repo.ChannelSender
	resolver repo.RecipientRepo
	retries  int
	backoff  time.Duration
	log      *zap.Logger
}

// NewDispatcher wires the configured channel senders.
func NewDispatcher(senders []repo.ChannelSender, resolver repo.RecipientRepo, retries int, backoff time.Duration, log *zap.Logger) *Dispatcher {
	byChannel := make(map[domain.Channel]repo.ChannelSender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	if retries < 1 {
		retries = 1
	}
	return &Dispatcher{
		senders:  byChannel,
		resolver: resolver,
		retries:  retries,
		backoff:  backoff,
		log:      log,
	}
}

// Send delivers note to every address of every recipient. Attempts run in
// parallel; each failed attempt is retried up to the configured limit with
// a short fixed backoff. The outcome reports every pair individually.
func (d *Dispatcher) Send(ctx context.Context, note *domain.Notification, recipients []*domain.Recipient) Outcome {
	outcome := make(Outcome)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, rec := range recipients {
		for _, addr := range rec.Addresses {
			target := Target{User: rec.User, Channel: addr.Channel}
			wg.Add(1)
			go func(addr domain.Address) {
				defer wg.Done()
				res := d.deliver(ctx, addr, note)
				mu.Lock()
				outcome[target] = res
				mu.Unlock()
			}(addr)
		}
	}
	wg.Wait()

	for target, res := range outcome {
		if !res.OK {
			d.log.Warn("delivery failed",
				zap.String("note", note.ID),
				zap.String("user", string(target.User)),
				zap.String("channel", string(target.Channel)),
				zap.Int("attempts", res.Attempts),
				zap.Error(res.Err))
		}
	}
	return outcome
}

// deliver runs the retry loop for a single (address, note) pair.
func (d *Dispatcher) deliver(ctx context.Context, addr domain.Address, note *domain.Notification) Result {
	sender, ok := d.senders[addr.Channel]
	if !ok {
		return Result{Err: fmt.Errorf("no sender for channel %q", addr.Channel)}
	}
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err = sender.Send(ctx, addr.Value, note); err == nil {
			return Result{OK: true, Attempts: attempt}
		}
		if attempt < d.retries {
			select {
			case <-ctx.Done():
				return Result{Attempts: attempt, Err: ctx.Err()}
			case <-time.After(d.backoff):
			}
		}
	}
	return Result{Attempts: d.retries, Err: err}
}

// SendToUser resolves one user's channels and delivers to them.
func (d *Dispatcher) SendToUser(ctx context.Context, note *domain.Notification, user domain.UserID) Outcome {
	rec, err := d.resolver.Resolve(ctx, user)
	if err != nil {
		d.log.Error("recipient resolve failed", zap.String("user", string(user)), zap.Error(err))
		return Outcome{}
	}
	return d.Send(ctx, note, []*domain.Recipient{rec})
}

// Broadcast delivers to the full authorized-recipient set, the audience of
// a global keyword match.
func (d *Dispatcher) Broadcast(ctx context.Context, note *domain.Notification) Outcome {
	recipients, err := d.resolver.ListAll(ctx)
	if err != nil {
		d.log.Error("recipient list failed", zap.Error(err))
		return Outcome{}
	}
	return d.Send(ctx, note, recipients)
}

// NotifyReminder implements ReminderNotifier: one escalation fire towards
// the reminder's user, annotated with the time since first detection.
func (d *Dispatcher) NotifyReminder(ctx context.Context, rem *domain.Reminder, elapsed time.Duration) {
	note := &domain.Notification{
		ID:      uuid.NewString(),
		Subject: fmt.Sprintf("Reminder: %q is waiting for you", rem.Keyword),
		Body:    reminderBody(rem, elapsed),
	}
	d.SendToUser(ctx, note, rem.UserID)
}

func reminderBody(rem *domain.Reminder, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Keyword %q was detected %s ago and is still unacknowledged.\n", rem.Keyword, elapsed.Round(time.Second))
	if rem.Payload.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", rem.Payload.Sender)
	}
	if rem.Payload.Group != "" {
		fmt.Fprintf(&b, "Group: %s\n", rem.Payload.Group)
	}
	if rem.Payload.AttachmentSummary != "" {
		fmt.Fprintf(&b, "Attachment: %s\n", rem.Payload.AttachmentSummary)
	}
	if rem.Payload.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", rem.Payload.Message)
	}
	return b.String()
}
