// Command send-push flushes a queue file: pending notifications are grouped
// per destination, sent, and marked as sent. Run it from cron or a systemd
// timer; it does not schedule itself.
//
// Usage:
//
//	send-push [--debug] [--dry-run] [--config file] [--env-file file] queueFile
//
// Failed destinations stay queued for the next run and do not change the exit
// code. It exits 1 when the queue cannot be opened or read.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pushqueue/internal/app"
	"pushqueue/internal/dispatch"
	"pushqueue/internal/metrics"
	logx "pushqueue/pkg/logx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("send-push", flag.ContinueOnError)
	var (
		opt    app.Options
		dryRun bool
	)
	fs.BoolVar(&opt.Debug, "debug", false, "enable debug output")
	fs.BoolVar(&dryRun, "dry-run", false, "compose and log messages without sending or marking them")
	fs.StringVar(&opt.ConfigPath, "config", "", "optional JSON/YAML config file")
	fs.StringVar(&opt.EnvFile, "env-file", "", "optional dotenv file with PUSHQUEUE_* overrides")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: send-push [flags] queueFile")
		fs.PrintDefaults()
	}

	pos, err := app.ParseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		fs.Usage()
		return 2
	}
	opt.QueueFile = pos[0]

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(opt)
	if err != nil {
		logx.NewConsole("info").Error("fatal: config unusable", logx.Err(err))
		return 1
	}
	defer a.Close()
	cfg := a.Config()
	log := a.Log().With(logx.String("cmd", "send-push"))

	q, err := a.OpenQueue()
	if err != nil {
		log.Error("cannot open queue", logx.String("queue", opt.QueueFile), logx.Err(err))
		return 1
	}
	defer q.Close()

	sender, err := a.Sender()
	if err != nil {
		log.Error("cannot build transport", logx.Err(err))
		return 1
	}

	d := dispatch.New(q, sender, log, dispatch.Options{
		Debug:      cfg.Debug,
		DryRun:     dryRun,
		RatePerSec: cfg.Transport.RatePerSec,
	})
	rep, flushErr := d.Flush(ctx)

	m := metrics.NewFlush()
	m.Observe(rep, flushErr)
	if st, err := q.Stats(context.WithoutCancel(ctx)); err != nil {
		log.Warn("queue stats unavailable", logx.Err(err))
	} else {
		m.ObserveQueue(st)
		log.Debug("queue stats", logx.Int("total", st.Total), logx.Int("unsent", st.Unsent), logx.Time("oldest_unsent", st.OldestUnsent))
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("metrics textfile not written", logx.String("path", cfg.Metrics.Textfile), logx.Err(err))
	}

	if flushErr != nil {
		if errors.Is(flushErr, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}
