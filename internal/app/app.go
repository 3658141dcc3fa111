package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"pushqueue/internal/config"
	"pushqueue/internal/storage"
	"pushqueue/internal/transport"
	"pushqueue/internal/transport/console"
	"pushqueue/internal/transport/pushover"
	"pushqueue/internal/transport/telegram"
	logx "pushqueue/pkg/logx"
)

// Options are the command-line inputs shared by both commands.
type Options struct {
	QueueFile  string
	ConfigPath string
	EnvFile    string
	Debug      bool
}

// App wires configuration, logging, the queue and the transport for one
// short-lived command invocation.
type App struct {
	opt Options
	cfg *config.Config

	log    logx.Logger
	closer io.Closer
}

// New loads the configuration named by opt and builds the logger.
func New(opt Options) (*App, error) {
	cfg, err := config.Load(config.LoadOptions{Path: opt.ConfigPath, EnvFile: opt.EnvFile})
	if err != nil {
		return nil, err
	}
	return NewWithConfig(opt, cfg), nil
}

// NewWithConfig builds an App around an already loaded configuration.
// opt.Debug overrides cfg.Debug when set.
func NewWithConfig(opt Options, cfg *config.Config) *App {
	if opt.Debug {
		cfg.Debug = true
	}

	log, closer := logx.New(logx.Config{
		Level:   cfg.LogLevel(),
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Journal: cfg.Logging.Journal,
	})
	return &App{opt: opt, cfg: cfg, log: log, closer: closer}
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Log returns the process logger.
func (a *App) Log() logx.Logger { return a.log }

// OpenQueue opens (or creates) the queue file. Errors match storage.ErrStorageUnavailable.
func (a *App) OpenQueue() (*storage.Queue, error) {
	sc, err := mapStorageConfig(a.cfg, a.opt.QueueFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}
	return storage.Open(sc, a.log.With(logx.String("comp", "queue")))
}

// Sender builds the configured transport.
func (a *App) Sender() (transport.Sender, error) {
	tc := a.cfg.Transport
	d, err := a.cfg.Durations()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(tc.Driver)) {
	case "", "pushover":
		return pushover.New(pushover.Config{
			Endpoint:        tc.Endpoint,
			Timeout:         d.TransportTimeout,
			BreakerFailures: tc.BreakerFailures,
			UserAgent:       tc.UserAgent,
		}, a.log), nil
	case "telegram":
		return telegram.New(telegram.Config{URL: tc.Endpoint, Timeout: d.TransportTimeout}, a.log), nil
	case "console":
		return console.New(a.log), nil
	default:
		return nil, errors.New("unknown transport.driver: " + tc.Driver)
	}
}

// Close releases the log file sink, if any.
func (a *App) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
