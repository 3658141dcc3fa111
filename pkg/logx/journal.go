package logx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
)

// journalWriter forwards zerolog JSON lines to the systemd journal.
// Structured fields become journal variables (upper-cased keys).
type journalWriter struct {
	send func(msg string, p journal.Priority, vars map[string]string) error
}

func newJournalWriter() (*journalWriter, bool) {
	if !journal.Enabled() {
		return nil, false
	}
	return &journalWriter{send: journal.Send}, true
}

func (w *journalWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	msg, vars := journalEntry(p)
	if msg == "" {
		return len(p), nil
	}
	// Journal failures must never break the primary sinks.
	_ = w.send(msg, journalPriority(level), vars)
	return len(p), nil
}

func journalEntry(p []byte) (string, map[string]string) {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return strings.TrimSpace(string(p)), nil
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	vars := make(map[string]string, len(m))
	for k, v := range m {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		vars[journalKey(k)] = fmt.Sprint(v)
	}
	return msg, vars
}

// journalKey converts a field name to a valid journal variable name ([A-Z0-9_], no leading underscore).
func journalKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(k) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s := strings.TrimLeft(b.String(), "_")
	if s == "" {
		return "FIELD"
	}
	return s
}

func journalPriority(level zerolog.Level) journal.Priority {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return journal.PriDebug
	case zerolog.InfoLevel:
		return journal.PriInfo
	case zerolog.WarnLevel:
		return journal.PriWarning
	case zerolog.ErrorLevel:
		return journal.PriErr
	default:
		return journal.PriCrit
	}
}
