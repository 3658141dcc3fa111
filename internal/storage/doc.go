// Package storage is the durable notification queue.
//
// It owns the SQLite queue file: every Event Record is appended once and
// only ever changes by getting its sent timestamp. All writes run inside
// immediate transactions so several enqueue processes and a flush process
// can share one file.
package storage
