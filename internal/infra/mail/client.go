// Package mail delivers notifications over SMTP as the email channel.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
)

// Client sends plain-text mail through one SMTP relay. It implements
// repo.ChannelSender for domain.ChannelEmail.
type Client struct {
	addr string // host:port
	from string
	auth smtp.Auth
	log  *zap.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewClient creates an SMTP sender. user and pass may be empty for relays
// that accept unauthenticated submission.
func NewClient(addr, from, user, pass string, log *zap.Logger) *Client {
	c := &Client{addr: addr, from: from, log: log, send: smtp.SendMail}
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		c.auth = smtp.PlainAuth("", user, pass, host)
	}
	return c
}

// Channel implements repo.ChannelSender.
func (c *Client) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send delivers one notification to the given mailbox. smtp.SendMail does
// not take a context; cancellation is checked before dialing.
func (c *Client) Send(ctx context.Context, address string, note *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(c.from, address, note)
	if err := c.send(c.addr, c.auth, c.from, []string{address}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", address, err)
	}
	return nil
}

func buildMessage(from, to string, note *domain.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(note.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(note.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// sanitizeHeader strips CR/LF so message content cannot inject headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
