// Command queue-push appends one monitoring notification to a queue file.
//
// Usage:
//
//	queue-push [--debug] [--config file] [--env-file file] queueFile apiKey userKey notificationType host hostState service serviceState msg
//
// It exits non-zero only when the queue file cannot be opened (1) or the
// arguments are wrong (2). A failed enqueue or an unusable config is logged but
// still exits 0 so the monitoring system never blocks on notification delivery.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pushqueue/internal/app"
	"pushqueue/internal/config"
	"pushqueue/internal/event"
	logx "pushqueue/pkg/logx"
)

var positionals = []string{"queueFile", "apiKey", "userKey", "notificationType", "host", "hostState", "service", "serviceState", "msg"}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("queue-push", flag.ContinueOnError)
	var opt app.Options
	fs.BoolVar(&opt.Debug, "debug", false, "enable debug output")
	fs.StringVar(&opt.ConfigPath, "config", "", "optional JSON/YAML config file")
	fs.StringVar(&opt.EnvFile, "env-file", "", "optional dotenv file with PUSHQUEUE_* overrides")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: queue-push [flags] %v\n", positionals)
		fs.PrintDefaults()
	}

	pos, err := app.ParseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != len(positionals) {
		fs.Usage()
		return 2
	}
	opt.QueueFile = pos[0]

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(opt)
	if err != nil {
		// A broken config must not lose the alert.
		logx.NewConsole("info").Warn("config unusable; queueing with defaults", logx.Err(err))
		a = app.NewWithConfig(opt, config.Default())
	}
	defer a.Close()
	log := a.Log().With(logx.String("cmd", "queue-push"))

	q, err := a.OpenQueue()
	if err != nil {
		log.Error("cannot open queue", logx.String("queue", opt.QueueFile), logx.Err(err))
		return 1
	}
	defer q.Close()

	d := event.Draft{
		APIKey:           pos[1],
		UserKey:          pos[2],
		NotificationType: pos[3],
		Host:             pos[4],
		HostState:        pos[5],
		Service:          pos[6],
		ServiceState:     pos[7],
		Msg:              pos[8],
	}
	r, err := event.New(d)
	if err != nil {
		log.Error("notification rejected", logx.Err(err), logx.String("host", d.Host), logx.String("service", d.Service))
		return 0
	}

	id, err := q.Enqueue(ctx, r)
	if err != nil {
		log.Error("failed to queue notification", logx.Err(err), logx.String("summary", r.Summary()))
		return 0
	}
	log.Debug("notification queued", logx.Int64("id", id), logx.String("summary", r.Summary()))
	return 0
}
