// Package lark adapts the Lark (Feishu) open platform SDK to the narrow
// transport interfaces the core depends on: an inbound event source fed by
// the WebSocket event stream, and a chat channel sender.
package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/domain"
	"github.com/keywatch/keywatch/internal/biz/repo"
)

// Client is the Lark transport adapter. It implements repo.EventSource for
// inbound messages and repo.ChannelSender for the chat channel.
type Client struct {
	appID     string
	appSecret string
	log       *zap.Logger

	larkCli *lark.Client
	wsCli   *larkws.Client
	onEvent repo.EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewClient creates a Lark adapter.
func NewClient(appID, appSecret string, log *zap.Logger) *Client {
	return &Client{appID: appID, appSecret: appSecret, log: log}
}

// Channel implements repo.ChannelSender.
func (c *Client) Channel() domain.Channel {
	return domain.ChannelChat
}

// Send delivers a notification as a chat text message. address is the
// receiver's chat or user id.
func (c *Client) Send(ctx context.Context, address string, note *domain.Notification) error {
	if c.larkCli == nil {
		c.larkCli = lark.NewClient(c.appID, c.appSecret)
	}
	content := map[string]string{"text": note.Subject + "\n" + note.Body}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(address).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// OnEvent registers the inbound event handler.
func (c *Client) OnEvent(handler repo.EventHandler) {
	c.onEvent = handler
}

// Start connects the WebSocket event stream and blocks until Stop or a
// connection failure.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.larkCli = lark.NewClient(c.appID, c.appSecret)

	// Handlers must return quickly so the SDK can ACK; events are
	// processed asynchronously.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.log.Info("starting lark websocket connection")
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects the event stream.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// handleMessage converts one raw Lark message into a domain event.
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil || c.onEvent == nil {
		return
	}

	// Ignore the bot's own messages to prevent notification loops.
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	ev := &domain.InboundEvent{
		GroupID:    deref(rawMsg.ChatId),
		ReceivedAt: time.Now(),
	}
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil {
		ev.SenderID = deref(event.Event.Sender.SenderId.OpenId)
	}

	switch deref(rawMsg.MessageType) {
	case "text":
		ev.Text = parseTextContent(deref(rawMsg.Content))
	case "file":
		ev.Filename = parseFileName(deref(rawMsg.Content))
		ev.AttachmentSummary = "file: " + ev.Filename
	case "post":
		ev.Text = parsePostContent(deref(rawMsg.Content))
	default:
		return
	}

	c.onEvent(c.ctx, ev)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseTextContent extracts the text field from a text message body.
func parseTextContent(content string) string {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return content
	}
	return body.Text
}

// parseFileName extracts the original filename from a file message body.
func parseFileName(content string) string {
	var body struct {
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return ""
	}
	return body.FileName
}

// parsePostContent flattens a rich-text post into plain text.
func parsePostContent(content string) string {
	var body struct {
		Content [][]struct {
			Tag  string `json:"tag"`
			Text string `json:"text"`
		} `json:"content"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return content
	}
	out := body.Title
	for _, line := range body.Content {
		for _, el := range line {
			if el.Tag == "text" {
				if out != "" {
					out += " "
				}
				out += el.Text
			}
		}
	}
	return out
}
