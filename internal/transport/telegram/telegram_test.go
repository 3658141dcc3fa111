package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/transport"
	logx "pushqueue/pkg/logx"
)

type botAPI struct {
	mu    sync.Mutex
	paths []string
	calls []map[string]any
	fail  string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)
	b.mu.Lock()
	b.paths = append(b.paths, r.URL.Path)
	b.calls = append(b.calls, params)
	fail := b.fail
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail != "" {
		_, _ = w.Write([]byte(fail))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":-100123,"type":"supergroup"}}}`))
}

func TestSendMessage(t *testing.T) {
	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := New(Config{URL: srv.URL}, logx.Nop())
	err := c.Send(context.Background(), transport.Push{
		Title:   "2 PROBLEM",
		Body:    "PROBLEM: a is DOWN\nPROBLEM: b is DOWN",
		APIKey:  "123:token",
		UserKey: "-100123:42",
	})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.True(t, strings.HasSuffix(api.paths[0], "/bot123:token/sendMessage"), api.paths[0])
	assert.Equal(t, "-100123", fmt.Sprint(api.calls[0]["chat_id"]))
	assert.Equal(t, "42", fmt.Sprint(api.calls[0]["message_thread_id"]))
	assert.Equal(t, "2 PROBLEM\n\nPROBLEM: a is DOWN\nPROBLEM: b is DOWN", api.calls[0]["text"])
}

func TestSendRejected(t *testing.T) {
	api := &botAPI{fail: `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := New(Config{URL: srv.URL}, logx.Nop())
	err := c.Send(context.Background(), transport.Push{Title: "t", APIKey: "123:token", UserKey: "42"})
	require.ErrorIs(t, err, transport.ErrTransport)

	var se *transport.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.Status)
	assert.False(t, se.Temporary)
}

func TestSendInvalidCredentials(t *testing.T) {
	c := New(Config{URL: "http://127.0.0.1:1"}, logx.Nop())

	err := c.Send(context.Background(), transport.Push{APIKey: "", UserKey: "42"})
	require.ErrorIs(t, err, transport.ErrTransport)

	err = c.Send(context.Background(), transport.Push{APIKey: "123:token", UserKey: "not-a-chat"})
	require.ErrorIs(t, err, transport.ErrTransport)
	assert.Contains(t, err.Error(), "invalid chat id")
}

func TestParseTarget(t *testing.T) {
	to, err := parseTarget("@alerts")
	require.NoError(t, err)
	assert.Equal(t, "@alerts", to.chat.Recipient())
	assert.Zero(t, to.threadID)

	to, err = parseTarget("-100123:7")
	require.NoError(t, err)
	assert.Equal(t, "-100123", to.chat.Recipient())
	assert.Equal(t, 7, to.threadID)

	_, err = parseTarget("-100123:x")
	assert.Error(t, err)
	_, err = parseTarget("")
	assert.Error(t, err)
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "t\n\nb", formatText(transport.Push{Title: "t", Body: "b"}))
	assert.Equal(t, "t", formatText(transport.Push{Title: "t"}))
	assert.Equal(t, "b", formatText(transport.Push{Body: "b"}))
}
