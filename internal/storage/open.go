package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "pushqueue/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeout = 5 * time.Second
	timeLayout         = "2006-01-02 15:04:05.000"
)

// Open opens or creates the queue at cfg.Path and ensures the schema exists.
// It is safe to call on an existing queue file.
func Open(cfg Config, log logx.Logger) (*Queue, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: queue path is required", ErrStorageUnavailable)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = busy + 5*time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dsn(path, busy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	// One connection per process; cross-process exclusion comes from SQLite locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	q := &Queue{db: db, log: log, now: now, opTimeout: opTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	// WAL lets fetches read a committed snapshot while another process writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("queue: WAL not enabled", logx.Err(err))
	}
	if err := q.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	log.Debug("queue opened", logx.String("path", path))
	return q, nil
}

// dsn builds a modernc sqlite DSN with per-connection pragmas.
// _txlock=immediate makes every BeginTx take the write lock up front.
func dsn(path string, busy time.Duration) string {
	v := url.Values{}
	v.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	v.Add("_pragma", "synchronous(NORMAL)")
	v.Set("_txlock", "immediate")
	return path + "?" + v.Encode()
}

func (q *Queue) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, string(b))
	return err
}
