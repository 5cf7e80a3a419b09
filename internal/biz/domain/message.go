package domain

import "time"

// InboundEvent is one message observed on the group-chat transport.
type InboundEvent struct {
	Text              string
	Filename          string // original name of an attached file, if any
	SenderID          string
	SenderName        string
	GroupID           string
	GroupName         string
	AttachmentSummary string
	ForUsers          []UserID // subscribed users this event is screened for
	ReceivedAt        time.Time
}

// Channel names a delivery transport.
type Channel string

const (
	ChannelChat  Channel = "chat"
	ChannelEmail Channel = "email"
)

// Address is one reachable endpoint of a recipient.
type Address struct {
	Channel Channel
	Value   string // chat id, email address, ...
}

// Recipient is a user together with their enabled delivery addresses.
type Recipient struct {
	User      UserID
	Addresses []Address
}

// Notification is one logical outbound message, fanned out by the
// dispatcher across every (recipient, channel) pair.
type Notification struct {
	ID      string // correlation id for logs and outcome reporting
	Subject string
	Body    string
}
