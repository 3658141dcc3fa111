package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/storage"
	logx "pushqueue/pkg/logx"
)

func TestRunQueuesOneRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	code := run([]string{path, "app", "user", "PROBLEM", "web1", "DOWN", "", "", "ping timeout"})
	require.Equal(t, 0, code)

	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()

	recs, err := q.FetchUnsent(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "web1", recs[0].Host)
	assert.Equal(t, "ping timeout", recs[0].Msg)
	assert.False(t, recs[0].IsServiceEvent())
}

func TestRunKeepsDashPrefixedMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	code := run([]string{path, "app", "user", "PROBLEM", "web1", "WARNING", "cert", "WARNING", "-1 days until cert expiry", "--debug"})
	require.Equal(t, 0, code)

	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()

	recs, err := q.FetchUnsent(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "-1 days until cert expiry", recs[0].Msg)
}

func TestRunRejectedRecordStillExitsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	code := run([]string{path, "app", "user", "", "", "", "", "", ""})
	assert.Equal(t, 0, code)

	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()
	st, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}

func TestRunQueuesWithDefaultsWhenConfigBroken(t *testing.T) {
	t.Setenv("PUSHQUEUE_TRANSPORT_RATE_PER_SEC", "fast")
	path := filepath.Join(t.TempDir(), "queue.db")

	code := run([]string{path, "app", "user", "PROBLEM", "web1", "DOWN", "", "", "ping timeout"})
	require.Equal(t, 0, code)

	q, err := storage.Open(storage.Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	defer q.Close()
	st, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Unsent)
}

func TestRunUsageErrors(t *testing.T) {
	assert.Equal(t, 2, run([]string{"queue.db", "app"}))
	assert.Equal(t, 2, run([]string{"--nope"}))
}

func TestRunUnopenableQueueExitsOne(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	code := run([]string{filepath.Join(blocker, "queue.db"), "app", "user", "PROBLEM", "web1", "DOWN", "", "", "x"})
	assert.Equal(t, 1, code)
}
