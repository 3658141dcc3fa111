package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/event"
	"pushqueue/internal/storage"
	logx "pushqueue/pkg/logx"
)

func seed(t *testing.T, path string, drafts ...event.Draft) {
	t.Helper()
	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()
	for _, d := range drafts {
		r, err := event.New(d)
		require.NoError(t, err)
		_, err = q.Enqueue(context.Background(), r)
		require.NoError(t, err)
	}
}

func stats(t *testing.T, path string) storage.Stats {
	t.Helper()
	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()
	st, err := q.Stats(context.Background())
	require.NoError(t, err)
	return st
}

func consoleEnv(t *testing.T) {
	t.Setenv("PUSHQUEUE_TRANSPORT_DRIVER", "console")
	t.Setenv("PUSHQUEUE_TRANSPORT_RATE_PER_SEC", "0")
}

func TestRunFlushesAndMarks(t *testing.T) {
	consoleEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")
	prom := filepath.Join(dir, "pushqueue.prom")
	t.Setenv("PUSHQUEUE_METRICS_TEXTFILE", prom)

	seed(t, path,
		event.Draft{APIKey: "a", UserKey: "u", NotificationType: "PROBLEM", Host: "web1", HostState: "DOWN"},
		event.Draft{APIKey: "a", UserKey: "u", NotificationType: "RECOVERY", Host: "web1", HostState: "UP"},
	)

	require.Equal(t, 0, run([]string{path}))
	st := stats(t, path)
	assert.Equal(t, 2, st.Total)
	assert.Zero(t, st.Unsent)

	b, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(b), "pushqueue_flush_records_marked")

	// Nothing left: second run is a no-op.
	assert.Equal(t, 0, run([]string{path}))
}

func TestRunDryRunLeavesQueue(t *testing.T) {
	consoleEnv(t)
	path := filepath.Join(t.TempDir(), "queue.db")
	seed(t, path, event.Draft{APIKey: "a", UserKey: "u", NotificationType: "PROBLEM", Host: "db1"})

	require.Equal(t, 0, run([]string{"--dry-run", path}))
	assert.Equal(t, 1, stats(t, path).Unsent)
}

func TestRunUsageErrors(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"a.db", "b.db"}))
}

func TestRunBrokenConfigExitsOne(t *testing.T) {
	t.Setenv("PUSHQUEUE_TRANSPORT_RATE_PER_SEC", "fast")
	path := filepath.Join(t.TempDir(), "queue.db")
	seed(t, path, event.Draft{APIKey: "a", UserKey: "u", NotificationType: "PROBLEM", Host: "db1"})

	assert.Equal(t, 1, run([]string{path}))
	assert.Equal(t, 1, stats(t, path).Unsent)
}

func TestRunUnopenableQueueExitsOne(t *testing.T) {
	consoleEnv(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	assert.Equal(t, 1, run([]string{filepath.Join(blocker, "queue.db")}))
}
