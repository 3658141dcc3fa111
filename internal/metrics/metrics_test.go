package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushqueue/internal/batch"
	"pushqueue/internal/dispatch"
	"pushqueue/internal/storage"
)

func TestObserveReport(t *testing.T) {
	f := NewFlush()
	started := time.Unix(1714550400, 0)
	rep := dispatch.Report{
		Started: started,
		Took:    1500 * time.Millisecond,
		Outcomes: []dispatch.Outcome{
			{Message: batch.Message{IDs: []int64{1, 2}}},
			{Message: batch.Message{IDs: []int64{3}}, SendErr: errors.New("x")},
			{Message: batch.Message{IDs: []int64{4}}, MarkErr: errors.New("y")},
		},
	}
	f.Observe(rep, nil)
	f.ObserveQueue(storage.Stats{Total: 4, Unsent: 2, OldestUnsent: started.Add(-time.Hour)})

	assert.Equal(t, 1.0, testutil.ToFloat64(f.messages.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.messages.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.messages.WithLabelValues("unmarked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.recordsMarked))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.unsent))
	assert.Equal(t, float64(started.Unix()), testutil.ToFloat64(f.lastRun))
	assert.Equal(t, 1.5, testutil.ToFloat64(f.duration))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.fetchFailed))

	f.Observe(dispatch.Report{}, errors.New("locked"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.fetchFailed))
}

func TestWriteTextfile(t *testing.T) {
	f := NewFlush()
	f.ObserveQueue(storage.Stats{Unsent: 3})
	path := filepath.Join(t.TempDir(), "pushqueue.prom")

	require.NoError(t, f.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "pushqueue_queue_unsent 3")

	assert.NoError(t, f.WriteTextfile(""))
}
