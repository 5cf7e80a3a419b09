package repo

import (
	"context"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// ChannelSender is one outbound transport (chat bot API, SMTP, ...).
// Implementations live under internal/infra; core logic only sees this.
type ChannelSender interface {
	// Channel names the transport this sender serves.
	Channel() domain.Channel

	// Send delivers one message to a single address. A returned error is
	// treated as transient and retried by the dispatcher.
	Send(ctx context.Context, address string, note *domain.Notification) error
}

// EventHandler consumes inbound chat events.
type EventHandler func(ctx context.Context, ev *domain.InboundEvent)

// EventSource is the inbound group-chat transport. It pushes every
// observed message to the registered handler.
type EventSource interface {
	OnEvent(handler EventHandler)
	Start(ctx context.Context) error
	Stop()
}
