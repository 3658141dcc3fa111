// Package pushover sends pushes through the Pushover messages API.
package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

const (
	// DefaultEndpoint is the public Pushover messages API.
	DefaultEndpoint = "https://api.pushover.net/1/messages.json"
	driverName      = "pushover"
)

// Config tunes the Pushover client. Zero values take the defaults.
type Config struct {
	Endpoint string
	// Timeout bounds one request. 0 means 10s.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive platform failures (network,
	// 429, 5xx) for one application token after which that token's remaining
	// sends fail fast. 0 means 3, <0 disables.
	BreakerFailures int
	UserAgent       string
}

// Client is a Pushover transport. It is safe for concurrent use.
//
// Pushover limits and rejects per application, so every application token
// (APIKey) gets its own circuit breaker.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// New creates a Pushover client.
func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pushqueue/1.0"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "pushover")),
		http:     &http.Client{Timeout: cfg.Timeout},
		breakers: map[string]*gobreaker.CircuitBreaker[int]{},
	}
}

func (c *Client) breaker(apiKey string) *gobreaker.CircuitBreaker[int] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[apiKey]; ok {
		return cb
	}

	trip := uint32(c.cfg.BreakerFailures)
	log := c.log.With(logx.String("api_key", logx.Mask(apiKey)))
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        driverName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return c.cfg.BreakerFailures > 0 && counts.ConsecutiveFailures >= trip
		},
		// A rejected credential is the destination's problem, not the platform's.
		IsSuccessful: func(err error) bool {
			var se *transport.SendError
			if errors.As(err, &se) {
				return !se.Temporary
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", logx.String("from", from.String()), logx.String("to", to.String()))
		},
	})
	c.breakers[apiKey] = cb
	return cb
}

// Send posts p. Any non-2xx answer, timeout or open breaker is a *transport.SendError.
func (c *Client) Send(ctx context.Context, p transport.Push) error {
	_, err := c.breaker(p.APIKey).Execute(func() (int, error) {
		return c.post(ctx, p)
	})
	if err == nil {
		return nil
	}
	var se *transport.SendError
	if errors.As(err, &se) {
		return se
	}
	// gobreaker.ErrOpenState / ErrTooManyRequests
	return &transport.SendError{Driver: driverName, Temporary: true, Err: err}
}

func (c *Client) post(ctx context.Context, p transport.Push) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("token", p.APIKey)
	form.Set("user", p.UserKey)
	form.Set("title", p.Title)
	form.Set("message", p.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, &transport.SendError{Driver: driverName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &transport.SendError{Driver: driverName, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	var ar apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &ar)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && ar.Status == 1 {
		c.log.Debug("push accepted", logx.String("request", ar.Request))
		return resp.StatusCode, nil
	}

	reason := strings.Join(ar.Errors, "; ")
	if reason == "" {
		reason = strings.TrimSpace(string(raw))
	}
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return resp.StatusCode, &transport.SendError{
		Driver:    driverName,
		Status:    resp.StatusCode,
		Temporary: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 || resp.StatusCode < 400,
		Err:       fmt.Errorf("rejected: %s", reason),
	}
}
