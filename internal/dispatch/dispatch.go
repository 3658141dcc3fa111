// Package dispatch runs one flush: fetch unsent records, compose messages,
// send each one and mark its records as sent.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pushqueue/internal/batch"
	"pushqueue/internal/event"
	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

// Store is the part of the queue the dispatcher needs.
type Store interface {
	FetchUnsent(ctx context.Context) ([]event.Record, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Options tunes a Dispatcher.
type Options struct {
	// Debug adds message bodies to info/warn logs.
	Debug bool
	// DryRun composes and logs messages without sending or marking.
	DryRun bool
	// RatePerSec paces sends. <= 0 means unlimited.
	RatePerSec float64
}

// Dispatcher flushes a Store through a transport.Sender.
type Dispatcher struct {
	store   Store
	sender  transport.Sender
	log     logx.Logger
	opt     Options
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a Dispatcher. A zero logger discards output.
func New(store Store, sender transport.Sender, log logx.Logger, opt Options) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	limit := rate.Inf
	if opt.RatePerSec > 0 {
		limit = rate.Limit(opt.RatePerSec)
	}
	return &Dispatcher{
		store:   store,
		sender:  sender,
		log:     log,
		opt:     opt,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Outcome is the result of one composed message.
type Outcome struct {
	Message batch.Message
	// SendErr is set when the transport failed or the run stopped before sending.
	SendErr error
	// MarkErr is set when the push went out but the records could not be
	// marked; they will be sent again by the next flush.
	MarkErr error
}

// Delivered reports whether the transport accepted the message.
func (o Outcome) Delivered() bool { return o.SendErr == nil }

// Marked reports whether the message's records are now sent.
func (o Outcome) Marked() bool { return o.SendErr == nil && o.MarkErr == nil }

// Report summarizes one Flush run.
type Report struct {
	RunID    string
	DryRun   bool
	Fetched  int
	Outcomes []Outcome
	Started  time.Time
	Took     time.Duration
}

// Delivered counts messages the transport accepted.
func (r Report) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Delivered() {
			n++
		}
	}
	return n
}

// Failed counts messages that were not delivered.
func (r Report) Failed() int { return len(r.Outcomes) - r.Delivered() }

// MarkedRecords counts records that are now sent because of this run.
func (r Report) MarkedRecords() int {
	if r.DryRun {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Marked() {
			n += len(o.Message.IDs)
		}
	}
	return n
}

// Flush runs one fetch/compose/send/mark cycle.
//
// A transport or mark failure affects only that message; the run continues.
// The returned error is non-nil only when the unsent records could not be read.
// Nothing is retried within a run.
func (d *Dispatcher) Flush(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString(), DryRun: d.opt.DryRun, Started: d.now()}
	log := d.log.With(logx.String("run", rep.RunID))

	records, err := d.store.FetchUnsent(ctx)
	if err != nil {
		log.Error("fetch unsent notifications failed", logx.Err(err))
		rep.Took = d.now().Sub(rep.Started)
		return rep, err
	}
	rep.Fetched = len(records)

	msgs := batch.Compose(records)
	log.Debug("composed messages", logx.Int("records", len(records)), logx.Int("messages", len(msgs)))

	rep.Outcomes = make([]Outcome, 0, len(msgs))
	for _, m := range msgs {
		rep.Outcomes = append(rep.Outcomes, d.deliver(ctx, log, m))
	}

	rep.Took = d.now().Sub(rep.Started)
	log.Info("flush finished",
		logx.Int("records", rep.Fetched),
		logx.Int("messages", len(rep.Outcomes)),
		logx.Int("delivered", rep.Delivered()),
		logx.Int("failed", rep.Failed()),
		logx.Int("marked", rep.MarkedRecords()),
		logx.Duration("took", rep.Took),
		logx.Bool("dry_run", rep.DryRun),
	)
	return rep, nil
}

func (d *Dispatcher) deliver(ctx context.Context, log logx.Logger, m batch.Message) Outcome {
	out := Outcome{Message: m}
	log = log.With(d.messageFields(m)...)

	if err := d.limiter.Wait(ctx); err != nil {
		out.SendErr = err
		log.Warn("push skipped", logx.Err(err))
		return out
	}

	if d.opt.DryRun {
		log.Info("dry run: push not sent")
		return out
	}

	log.Debug("sending push")
	push := transport.Push{Title: m.Title, Body: m.Body, APIKey: m.APIKey, UserKey: m.UserKey}
	if err := d.sender.Send(ctx, push); err != nil {
		out.SendErr = err
		log.Warn("push failed; records stay queued", logx.Err(err))
		return out
	}

	// The push is out; record it even if the run is being cancelled.
	if err := d.store.MarkSent(context.WithoutCancel(ctx), m.IDs); err != nil {
		out.MarkErr = err
		log.Error("push sent but marking failed; records will be sent again", logx.Err(err))
		return out
	}
	log.Info("push sent")
	return out
}

func (d *Dispatcher) messageFields(m batch.Message) []logx.Field {
	if d.opt.Debug {
		return []logx.Field{
			logx.Int64s("ids", m.IDs),
			logx.String("title", m.Title),
			logx.String("body", m.Body),
			logx.String("api_key", m.APIKey),
			logx.String("user_key", m.UserKey),
		}
	}
	return []logx.Field{
		logx.Int64s("ids", m.IDs),
		logx.String("title", m.Title),
		logx.String("api_key", logx.Mask(m.APIKey)),
		logx.String("user_key", logx.Mask(m.UserKey)),
	}
}
