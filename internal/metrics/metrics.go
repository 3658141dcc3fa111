// Package metrics records flush results for the node_exporter textfile
// collector. A flush is a short-lived process, so values describe the last
// run rather than accumulate.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"pushqueue/internal/dispatch"
	"pushqueue/internal/storage"
)

// Flush holds the gauges describing one send-push run.
type Flush struct {
	reg *prometheus.Registry

	messages      *prometheus.GaugeVec
	recordsMarked prometheus.Gauge
	unsent        prometheus.Gauge
	oldestUnsent  prometheus.Gauge
	lastRun       prometheus.Gauge
	duration      prometheus.Gauge
	fetchFailed   prometheus.Gauge
}

// NewFlush registers the run gauges on a private registry.
func NewFlush() *Flush {
	f := &Flush{
		reg: prometheus.NewRegistry(),
		messages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pushqueue_flush_messages",
			Help: "Messages handled by the last flush, by result.",
		}, []string{"result"}),
		recordsMarked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_flush_records_marked",
			Help: "Notifications marked as sent by the last flush.",
		}),
		unsent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_queue_unsent",
			Help: "Notifications still waiting after the last flush.",
		}),
		oldestUnsent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_queue_oldest_unsent_timestamp_seconds",
			Help: "Queue time of the oldest waiting notification, 0 if none.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_flush_last_run_timestamp_seconds",
			Help: "Start time of the last flush.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_flush_duration_seconds",
			Help: "Wall time of the last flush.",
		}),
		fetchFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushqueue_flush_fetch_failed",
			Help: "1 if the last flush could not read the queue.",
		}),
	}
	f.reg.MustRegister(f.messages, f.recordsMarked, f.unsent, f.oldestUnsent, f.lastRun, f.duration, f.fetchFailed)
	return f
}

// Registry exposes the underlying registry (tests, custom exporters).
func (f *Flush) Registry() *prometheus.Registry { return f.reg }

// Observe records a flush report. fetchErr is the error Flush returned.
func (f *Flush) Observe(rep dispatch.Report, fetchErr error) {
	sent, failed, unmarked := 0, 0, 0
	for _, o := range rep.Outcomes {
		switch {
		case !o.Delivered():
			failed++
		case o.MarkErr != nil:
			unmarked++
		default:
			sent++
		}
	}
	if rep.DryRun {
		f.messages.WithLabelValues("dry_run").Set(float64(len(rep.Outcomes)))
	} else {
		f.messages.WithLabelValues("sent").Set(float64(sent))
		f.messages.WithLabelValues("failed").Set(float64(failed))
		f.messages.WithLabelValues("unmarked").Set(float64(unmarked))
	}
	f.recordsMarked.Set(float64(rep.MarkedRecords()))
	if !rep.Started.IsZero() {
		f.lastRun.Set(float64(rep.Started.Unix()))
	}
	f.duration.Set(rep.Took.Seconds())
	if fetchErr != nil {
		f.fetchFailed.Set(1)
	} else {
		f.fetchFailed.Set(0)
	}
}

// ObserveQueue records the queue backlog after a flush.
func (f *Flush) ObserveQueue(st storage.Stats) {
	f.unsent.Set(float64(st.Unsent))
	if st.OldestUnsent.IsZero() {
		f.oldestUnsent.Set(0)
		return
	}
	f.oldestUnsent.Set(float64(st.OldestUnsent.Unix()))
}

// WriteTextfile atomically writes the metrics in text exposition format.
// An empty path is a no-op.
func (f *Flush) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, f.reg)
}
