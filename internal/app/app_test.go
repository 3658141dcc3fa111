package app

import (
	"context"
	"flag"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/storage"
	"pushqueue/internal/transport/console"
	"pushqueue/internal/transport/pushover"
	"pushqueue/internal/transport/telegram"
)

func newFlagSet() (*flag.FlagSet, *bool, *string) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	debug := fs.Bool("debug", false, "")
	cfg := fs.String("config", "", "")
	return fs, debug, cfg
}

func TestParseArgsInterleaved(t *testing.T) {
	fs, debug, cfg := newFlagSet()
	pos, err := ParseArgs(fs, []string{"queue.db", "app", "--debug", "user", "PROBLEM", "web1", "DOWN", "", "", "msg", "--config", "c.yaml"})
	require.NoError(t, err)
	assert.True(t, *debug)
	assert.Equal(t, "c.yaml", *cfg)
	assert.Equal(t, []string{"queue.db", "app", "user", "PROBLEM", "web1", "DOWN", "", "", "msg"}, pos)
}

func TestParseArgsDoubleDash(t *testing.T) {
	fs, debug, _ := newFlagSet()
	pos, err := ParseArgs(fs, []string{"queue.db", "--", "--debug", "-5 degrees"})
	require.NoError(t, err)
	assert.False(t, *debug)
	assert.Equal(t, []string{"queue.db", "--debug", "-5 degrees"}, pos)
}

func TestParseArgsUnknownFlag(t *testing.T) {
	fs, _, _ := newFlagSet()
	_, err := ParseArgs(fs, []string{"queue.db", "--verbose"})
	assert.Error(t, err)

	fs, _, _ = newFlagSet()
	_, err = ParseArgs(fs, []string{"--verbose", "queue.db"})
	assert.Error(t, err)
}

func TestParseArgsDashPrefixedValues(t *testing.T) {
	fs, debug, _ := newFlagSet()
	pos, err := ParseArgs(fs, []string{"queue.db", "-5", "--debug", "-1 days until cert expiry", "-", "-2.5"})
	require.NoError(t, err)
	assert.True(t, *debug)
	assert.Equal(t, []string{"queue.db", "-5", "-1 days until cert expiry", "-", "-2.5"}, pos)
}

func TestAppWiring(t *testing.T) {
	t.Setenv("PUSHQUEUE_LOGGING_CONSOLE", "false")
	path := filepath.Join(t.TempDir(), "queue.db")

	a, err := New(Options{QueueFile: path, Debug: true})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "debug", a.Config().LogLevel())

	q, err := a.OpenQueue()
	require.NoError(t, err)
	defer q.Close()
	_, err = q.FetchUnsent(context.Background())
	require.NoError(t, err)

	s, err := a.Sender()
	require.NoError(t, err)
	assert.IsType(t, &pushover.Client{}, s)

	a.Config().Transport.Driver = "telegram"
	s, err = a.Sender()
	require.NoError(t, err)
	assert.IsType(t, &telegram.Client{}, s)

	a.Config().Transport.Driver = "console"
	s, err = a.Sender()
	require.NoError(t, err)
	assert.IsType(t, &console.Sender{}, s)
}

func TestOpenQueueWithoutPath(t *testing.T) {
	a, err := New(Options{})
	require.NoError(t, err)
	_, err = a.OpenQueue()
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}
