// Package metrics records session outcomes in a Prometheus registry and
// writes it to a node-exporter textfile.
//
// Each owner process builds a fresh registry. Restore carries the counters
// and the last-success gauge over from the previous textfile so totals keep
// growing across runs. Histograms cover the current owner only.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"github.com/rbright/escriba/internal/session"
)

const namespace = "escriba"

// Recorder is a session.Observer backed by its own registry.
type Recorder struct {
	registry *prometheus.Registry
	textfile string

	sessions      *prometheus.CounterVec
	pipeline      prometheus.Histogram
	recording     prometheus.Histogram
	bytesCaptured prometheus.Counter
	lastSuccess   prometheus.Gauge
}

// New builds a recorder. An empty textfile path keeps metrics in memory only.
func New(textfile string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		textfile: strings.TrimSpace(textfile),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished recording sessions by outcome status.",
		}, []string{"status"}),
		pipeline: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_seconds",
			Help:      "Time from stop to transcript, encode and API call included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		recording: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_seconds",
			Help:      "Length of captured recordings.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		bytesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_bytes_total",
			Help:      "Audio bytes captured from the microphone.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last displayed transcript.",
		}),
	}
	r.registry.MustRegister(r.sessions, r.pipeline, r.recording, r.bytesCaptured, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe implements session.Observer.
func (r *Recorder) Observe(o session.Outcome) {
	r.sessions.WithLabelValues(o.Status()).Inc()
	r.bytesCaptured.Add(float64(o.BytesCaptured))

	if !o.StartedAt.IsZero() && o.StoppedAt.After(o.StartedAt) {
		r.recording.Observe(o.StoppedAt.Sub(o.StartedAt).Seconds())
	}
	if o.Cancelled {
		return
	}
	if !o.StoppedAt.IsZero() && o.FinishedAt.After(o.StoppedAt) {
		r.pipeline.Observe(o.FinishedAt.Sub(o.StoppedAt).Seconds())
	}
	if o.Err == nil && o.Applied {
		r.lastSuccess.Set(float64(o.FinishedAt.Unix()))
	}
}

// Restore seeds counters from the existing textfile. A missing file or an
// unset path leaves the registry at zero.
func (r *Recorder) Restore() error {
	if r.textfile == "" {
		return nil
	}
	f, err := os.Open(r.textfile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open metrics textfile: %w", err)
	}
	defer f.Close()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parse metrics textfile: %w", err)
	}

	if family, ok := families[namespace+"_sessions_total"]; ok {
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status" {
					r.sessions.WithLabelValues(label.GetValue()).Add(m.GetCounter().GetValue())
				}
			}
		}
	}
	if family, ok := families[namespace+"_captured_bytes_total"]; ok && len(family.GetMetric()) > 0 {
		r.bytesCaptured.Add(family.GetMetric()[0].GetCounter().GetValue())
	}
	if family, ok := families[namespace+"_last_success_timestamp_seconds"]; ok && len(family.GetMetric()) > 0 {
		r.lastSuccess.Set(family.GetMetric()[0].GetGauge().GetValue())
	}
	return nil
}

// Flush writes the registry to the textfile, if one is configured.
func (r *Recorder) Flush() error {
	if r.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.textfile), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
