package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStorageUnavailable means the queue file could not be opened or created.
	ErrStorageUnavailable = errors.New("queue storage unavailable")
	// ErrQueue matches every *QueueError.
	ErrQueue = errors.New("queue operation failed")
	// ErrUnknownID is returned by MarkSent when an identity does not exist.
	ErrUnknownID = errors.New("unknown notification id")
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed    = errors.New("queue closed")
)

// Config configures the queue store.
type Config struct {
	Path string
	// BusyTimeout bounds how long a transaction waits for another process's lock.
	// 0 means default (5s).
	BusyTimeout time.Duration
	// OpTimeout bounds a whole operation. 0 means default (BusyTimeout + 5s).
	OpTimeout time.Duration
	// Now overrides the clock used for queued/sent timestamps.
	Now func() time.Time
}

// QueueError reports a failed transactional operation. The store is unchanged.
type QueueError struct {
	Op  string
	IDs []int64
	Err error
}

func (e *QueueError) Error() string {
	var b strings.Builder
	b.WriteString("queue ")
	b.WriteString(e.Op)
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " %v", e.IDs)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *QueueError) Unwrap() error { return e.Err }

func (e *QueueError) Is(target error) bool { return target == ErrQueue }

// Stats summarizes the queue contents.
type Stats struct {
	Total        int
	Unsent       int
	OldestUnsent time.Time // zero when nothing is pending
}
