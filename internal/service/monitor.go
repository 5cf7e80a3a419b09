package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
	"github.com/keywatch/keywatch/internal/biz/usecase"
)

// Monitor is the message-processing pipeline: every inbound chat event is
// screened for each subscribed user; global hits broadcast once, personal
// hits arm (or restart) the user's reminder.
type Monitor struct {
	detect    *usecase.DetectUsecase
	keywords  *usecase.KeywordUsecase
	escalator *Escalator
	disp      *Dispatcher
	resolver  repo.RecipientRepo
	ackPhrase string // a message consisting of exactly this acknowledges
	log       *zap.Logger
}

// NewMonitor creates the pipeline service.
func NewMonitor(detect *usecase.DetectUsecase, keywords *usecase.KeywordUsecase, escalator *Escalator, disp *Dispatcher, resolver repo.RecipientRepo, ackPhrase string, log *zap.Logger) *Monitor {
	return &Monitor{
		detect:    detect,
		keywords:  keywords,
		escalator: escalator,
		disp:      disp,
		resolver:  resolver,
		ackPhrase: ackPhrase,
		log:       log,
	}
}

// HandleEvent screens one inbound event. Safe to call concurrently for
// independent events; per-user reminder transitions are serialized inside
// the escalator.
func (m *Monitor) HandleEvent(ctx context.Context, ev *domain.InboundEvent) {
	if m.isAck(ev) {
		acked, err := m.escalator.Acknowledge(ctx, domain.UserID(ev.SenderID))
		switch {
		case err != nil:
			m.log.Error("acknowledge failed", zap.String("user", ev.SenderID), zap.Error(err))
		case acked:
			m.log.Info("reminder acknowledged via chat", zap.String("user", ev.SenderID))
		default:
			m.log.Info("nothing to acknowledge", zap.String("user", ev.SenderID))
		}
		return
	}
	if m.handleCommand(ctx, ev) {
		return
	}

	users := ev.ForUsers
	if len(users) == 0 {
		// Transports that do not scope events screen for every
		// registered recipient.
		recs, err := m.resolver.ListAll(ctx)
		if err != nil {
			m.log.Error("recipient lookup failed", zap.Error(err))
			return
		}
		for _, rec := range recs {
			users = append(users, rec.User)
		}
	}

	// Global keyword results are user-independent; report each keyword
	// once per event no matter how many users it was screened for.
	seenGlobal := make(map[string]bool)
	var globals []domain.Match

	for _, user := range users {
		triggered := false
		for _, match := range m.detect.Detect(ctx, ev.Text, ev.Filename, user) {
			if match.Keyword.IsGlobal() {
				if !seenGlobal[match.Keyword.NormText] {
					seenGlobal[match.Keyword.NormText] = true
					globals = append(globals, match)
				}
				continue
			}
			// One reminder per user: the first (strongest-ordered)
			// personal hit arms it, further hits in the same event
			// would only restart it with identical payload.
			if triggered {
				continue
			}
			triggered = true
			payload := domain.Payload{
				Message:           ev.Text,
				Sender:            senderLabel(ev),
				Group:             groupLabel(ev),
				AttachmentSummary: ev.AttachmentSummary,
			}
			if err := m.escalator.Trigger(ctx, user, match.Keyword.Text, payload); err != nil {
				m.log.Error("reminder trigger failed",
					zap.String("user", string(user)),
					zap.String("keyword", match.Keyword.NormText),
					zap.Error(err))
			}
		}
	}

	if len(globals) > 0 {
		m.disp.Broadcast(ctx, globalNote(globals, ev))
	}
}

// Acknowledge clears the user's active reminder. Exposed to the command
// layer; returns false when there was nothing to acknowledge.
func (m *Monitor) Acknowledge(ctx context.Context, user domain.UserID) (bool, error) {
	return m.escalator.Acknowledge(ctx, user)
}

// handleCommand intercepts keyword management commands. "watch <word>" and
// "unwatch <word>" manage the sender's personal keywords; any other text is
// monitored content. Command messages are never screened for keywords.
func (m *Monitor) handleCommand(ctx context.Context, ev *domain.InboundEvent) bool {
	fields := strings.Fields(ev.Text)
	if len(fields) != 2 || ev.SenderID == "" {
		return false
	}
	user := domain.UserID(ev.SenderID)
	switch strings.ToLower(fields[0]) {
	case "watch":
		added, err := m.keywords.AddPersonal(ctx, user, fields[1])
		switch {
		case err != nil:
			m.log.Error("watch command failed", zap.String("user", ev.SenderID), zap.Error(err))
			m.reply(ctx, user, fmt.Sprintf("Could not watch %q: %v", fields[1], err))
		case added:
			m.reply(ctx, user, fmt.Sprintf("Watching %q.", fields[1]))
		default:
			m.reply(ctx, user, fmt.Sprintf("Already watching %q.", fields[1]))
		}
		return true
	case "unwatch":
		err := m.keywords.RemovePersonal(ctx, user, fields[1])
		switch {
		case errors.Is(err, domain.ErrNotFound):
			m.reply(ctx, user, fmt.Sprintf("%q was not being watched.", fields[1]))
		case err != nil:
			m.log.Error("unwatch command failed", zap.String("user", ev.SenderID), zap.Error(err))
			m.reply(ctx, user, fmt.Sprintf("Could not unwatch %q: %v", fields[1], err))
		default:
			m.reply(ctx, user, fmt.Sprintf("Stopped watching %q.", fields[1]))
		}
		return true
	}
	return false
}

func (m *Monitor) reply(ctx context.Context, user domain.UserID, text string) {
	m.disp.SendToUser(ctx, &domain.Notification{
		ID:      uuid.NewString(),
		Subject: "keywatch",
		Body:    text,
	}, user)
}

func (m *Monitor) isAck(ev *domain.InboundEvent) bool {
	return m.ackPhrase != "" && strings.EqualFold(strings.TrimSpace(ev.Text), m.ackPhrase)
}

func senderLabel(ev *domain.InboundEvent) string {
	if ev.SenderName != "" {
		return ev.SenderName
	}
	return ev.SenderID
}

func groupLabel(ev *domain.InboundEvent) string {
	if ev.GroupName != "" {
		return ev.GroupName
	}
	return ev.GroupID
}

func globalNote(matches []domain.Match, ev *domain.InboundEvent) *domain.Notification {
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		words = append(words, fmt.Sprintf("%q (%s)", m.Keyword.Text, m.Kind))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Keywords %s detected.\n", strings.Join(words, ", "))
	if s := senderLabel(ev); s != "" {
		fmt.Fprintf(&b, "From: %s\n", s)
	}
	if g := groupLabel(ev); g != "" {
		fmt.Fprintf(&b, "Group: %s\n", g)
	}
	if ev.Filename != "" {
		fmt.Fprintf(&b, "File: %s\n", ev.Filename)
	}
	if ev.Text != "" {
		fmt.Fprintf(&b, "Message: %s\n", ev.Text)
	}
	return &domain.Notification{
		ID:      uuid.NewString(),
		Subject: "Watched keyword detected",
		Body:    b.String(),
	}
}
