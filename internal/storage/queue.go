package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pushqueue/internal/event"
	logx "pushqueue/pkg/logx"
)

// Queue is the SQLite-backed notification queue.
//
// It keeps no state between calls: every read goes to the database.
// It is safe for concurrent use, and several processes may share one file.
type Queue struct {
	db  *sql.DB
	log logx.Logger

	now       func() time.Time
	opTimeout time.Duration
}

// Close releases the database handle.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Enqueue appends r and returns its new identity. Identity, queued and sent
// fields of r are ignored.
func (q *Queue) Enqueue(ctx context.Context, r event.Record) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, &QueueError{Op: "enqueue", Err: err}
	}
	q.log.Debug("queueing notification",
		logx.String("type", r.NotificationType),
		logx.String("host", r.Host),
		logx.String("host_state", r.HostState),
		logx.String("service", r.Service),
		logx.String("service_state", r.ServiceState),
		logx.String("msg", r.Msg),
		logx.String("api_key", logx.Mask(r.APIKey)),
		logx.String("user_key", logx.Mask(r.UserKey)),
	)

	var id int64
	err := q.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO notification (notificationType, host, hostState, service, serviceState, msg, apiKey, userKey, queued)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			r.NotificationType, r.Host, r.HostState, r.Service, r.ServiceState, r.Msg, r.APIKey, r.UserKey,
			formatTime(q.now()),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, &QueueError{Op: "enqueue", Err: err}
	}
	q.log.Debug("notification queued", logx.Int64("id", id))
	return id, nil
}

// FetchUnsent returns every record without a sent timestamp, oldest first.
// Records queued at the same instant keep insertion order.
func (q *Queue) FetchUnsent(ctx context.Context) ([]event.Record, error) {
	if q == nil || q.db == nil {
		return nil, &QueueError{Op: "fetch", Err: ErrClosed}
	}
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, notificationType, host, hostState, service, serviceState, msg, apiKey, userKey, queued
		 FROM notification WHERE sent IS NULL ORDER BY queued ASC, id ASC`)
	if err != nil {
		return nil, &QueueError{Op: "fetch", Err: err}
	}
	defer rows.Close()

	out := make([]event.Record, 0)
	for rows.Next() {
		var (
			r                                event.Record
			hostState, service, serviceState sql.NullString
			msg, apiKey, userKey             sql.NullString
			queued                           any
		)
		if err := rows.Scan(&r.ID, &r.NotificationType, &r.Host, &hostState, &service, &serviceState,
			&msg, &apiKey, &userKey, &queued); err != nil {
			return nil, &QueueError{Op: "fetch", Err: err}
		}
		r.HostState = hostState.String
		r.Service = service.String
		r.ServiceState = serviceState.String
		r.Msg = msg.String
		r.APIKey = apiKey.String
		r.UserKey = userKey.String
		if r.Queued, err = parseTime(queued); err != nil {
			return nil, &QueueError{Op: "fetch", IDs: []int64{r.ID}, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueueError{Op: "fetch", Err: err}
	}
	return out, nil
}

// MarkSent stamps every id as sent in one transaction. If any id does not
// exist nothing is updated. Already sent records keep their first timestamp.
func (q *Queue) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q.log.Debug("marking notifications as sent", logx.Int64s("ids", ids))

	sent := formatTime(q.now())
	err := q.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE notification SET sent = COALESCE(sent, ?) WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			res, err := stmt.ExecContext(ctx, sent, id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %d", ErrUnknownID, id)
			}
		}
		return nil
	})
	if err != nil {
		return &QueueError{Op: "mark sent", IDs: ids, Err: err}
	}
	return nil
}

// Stats counts queued records. It is informational only.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	if q == nil || q.db == nil {
		return Stats{}, &QueueError{Op: "stats", Err: ErrClosed}
	}
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	var (
		st     Stats
		oldest any
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN sent IS NULL THEN 1 ELSE 0 END), 0),
		        MIN(CASE WHEN sent IS NULL THEN queued END)
		 FROM notification`).Scan(&st.Total, &st.Unsent, &oldest)
	if err != nil {
		return Stats{}, &QueueError{Op: "stats", Err: err}
	}
	if st.OldestUnsent, err = parseTime(oldest); err != nil {
		return Stats{}, &QueueError{Op: "stats", Err: err}
	}
	return st, nil
}

// withTx runs fn in an immediate (write-locking) transaction and commits on
// success. Any error rolls the whole transaction back.
func (q *Queue) withTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if q == nil || q.db == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			q.log.Warn("queue rollback failed", logx.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts what the driver hands back for a datetime column:
// a time.Time when it could parse the text itself, or the raw text.
func parseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x, nil
	case []byte:
		return parseTimeString(string(x))
	case string:
		return parseTimeString(x)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
