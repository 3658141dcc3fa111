// Package console is a transport that only logs pushes. Useful for trying a
// queue file without credentials.
package console

import (
	"context"

	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

// Sender logs pushes instead of delivering them.
type Sender struct {
	log logx.Logger
}

// New creates a console sender writing to log.
func New(log logx.Logger) *Sender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{log: log.With(logx.String("comp", "console"))}
}

// Send logs p at info level and always succeeds unless ctx is done.
func (s *Sender) Send(ctx context.Context, p transport.Push) error {
	if err := ctx.Err(); err != nil {
		return &transport.SendError{Driver: "console", Temporary: true, Err: err}
	}
	s.log.Info("push",
		logx.String("title", p.Title),
		logx.String("body", p.Body),
		logx.String("api_key", logx.Mask(p.APIKey)),
		logx.String("user_key", logx.Mask(p.UserKey)),
	)
	return nil
}
