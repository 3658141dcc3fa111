package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

func TestSendLogsPush(t *testing.T) {
	var buf bytes.Buffer
	s := New(logx.NewWriter(&buf, "info"))

	require.NoError(t, s.Send(context.Background(), transport.Push{Title: "PROBLEM: web1 is DOWN", Body: "lost", APIKey: "app-key-123456", UserKey: "u"}))
	out := buf.String()
	assert.Contains(t, out, "PROBLEM: web1 is DOWN")
	assert.NotContains(t, out, "app-key-123456")
}

func TestSendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(logx.Nop()).Send(ctx, transport.Push{})
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}
