// Package telegram sends pushes through the Telegram Bot API.
//
// Credentials map as follows:
//   - APIKey: bot token
//   - UserKey: chat id, optionally with a forum topic ("-1001234:42"),
//     or a public channel username ("@alerts")
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

const driverName = "telegram"

// Config tunes the Telegram client.
type Config struct {
	// URL overrides the Bot API base URL (tests, local bot API servers).
	URL string
	// Timeout bounds one request. 0 means 10s.
	Timeout time.Duration
}

// Client keeps one bot per token for the lifetime of a flush run.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client

	mu   sync.Mutex
	bots map[string]*tele.Bot
}

// New creates a Telegram client. Bots are created lazily per token.
func New(cfg Config, log logx.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		log:  log.With(logx.String("comp", "telegram")),
		http: &http.Client{Timeout: cfg.Timeout},
		bots: map[string]*tele.Bot{},
	}
}

// target is a chat plus an optional forum topic.
type target struct {
	chat     tele.Recipient
	threadID int
}

type channelRecipient string

func (c channelRecipient) Recipient() string { return string(c) }

func parseTarget(userKey string) (target, error) {
	s := strings.TrimSpace(userKey)
	if s == "" {
		return target{}, errors.New("empty chat id")
	}
	if strings.HasPrefix(s, "@") {
		return target{chat: channelRecipient(s)}, nil
	}
	chatPart, threadPart, hasThread := strings.Cut(s, ":")
	id, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return target{}, fmt.Errorf("invalid chat id %q", chatPart)
	}
	t := target{chat: &tele.Chat{ID: id}}
	if hasThread {
		if t.threadID, err = strconv.Atoi(threadPart); err != nil {
			return target{}, fmt.Errorf("invalid thread id %q", threadPart)
		}
	}
	return t, nil
}

func formatText(p transport.Push) string {
	switch {
	case p.Title == "":
		return p.Body
	case p.Body == "":
		return p.Title
	default:
		return p.Title + "\n\n" + p.Body
	}
}

func (c *Client) bot(token string) (*tele.Bot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.bots[token]; ok {
		return b, nil
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     c.cfg.URL,
		Token:   token,
		Client:  c.http,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	c.bots[token] = b
	return b, nil
}

// Send posts p as one text message. API errors become *transport.SendError.
func (c *Client) Send(ctx context.Context, p transport.Push) error {
	if err := ctx.Err(); err != nil {
		return &transport.SendError{Driver: driverName, Temporary: true, Err: err}
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return &transport.SendError{Driver: driverName, Err: errors.New("empty bot token")}
	}
	to, err := parseTarget(p.UserKey)
	if err != nil {
		return &transport.SendError{Driver: driverName, Err: err}
	}
	b, err := c.bot(p.APIKey)
	if err != nil {
		return &transport.SendError{Driver: driverName, Err: err}
	}

	msg, err := b.Send(to.chat, formatText(p), &tele.SendOptions{
		DisableWebPagePreview: true,
		ThreadID:              to.threadID,
	})
	if err != nil {
		return classify(err)
	}
	c.log.Debug("push accepted", logx.Int("message_id", msg.ID))
	return nil
}

func classify(err error) error {
	se := &transport.SendError{Driver: driverName, Temporary: true, Err: err}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		se.Status = apiErr.Code
		se.Temporary = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return se
}
