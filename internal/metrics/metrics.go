// Package metrics exports tracker counters in the Prometheus text format.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

const namespace = "cttrack"

// Textfile implements domain.Metrics and rewrites a node-exporter textfile
// after every flush and activity check. An empty path only keeps the
// counters in memory.
type Textfile struct {
	path     string
	registry *prometheus.Registry
	logger   *zap.Logger
	mu       sync.Mutex

	samples       *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	activeSeconds prometheus.Counter
	totalSeconds  prometheus.Gauge
	checks        *prometheus.CounterVec
	terminations  prometheus.Counter
}

// NewTextfile registers the tracker collectors on a private registry.
func NewTextfile(path string, logger *zap.Logger) (*Textfile, error) {
	m := &Textfile{
		path:     path,
		registry: prometheus.NewRegistry(),
		logger:   logger,
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulator",
			Name:      "samples_total",
			Help:      "Liveness samples taken, by outcome.",
		}, []string{"state"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulator",
			Name:      "flushes_total",
			Help:      "Flush attempts, by result.",
		}, []string{"result"}),
		activeSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulator",
			Name:      "active_seconds_total",
			Help:      "Active time persisted by this process.",
		}),
		totalSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_seconds",
			Help:      "TotalTime stored in the ledger after the last successful flush.",
		}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "checks_total",
			Help:      "Activity checks, by answer (skipped when nothing was running).",
		}, []string{"answer"}),
		terminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "terminations_total",
			Help:      "Applications terminated after a negative answer.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.samples, m.flushes, m.activeSeconds, m.totalSeconds, m.checks, m.terminations,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry holding the tracker collectors.
func (m *Textfile) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSample counts one liveness sample. Samples never trigger a write.
func (m *Textfile) ObserveSample(active bool) {
	state := "idle"
	if active {
		state = "active"
	}
	m.samples.WithLabelValues(state).Inc()
}

// ObserveFlush records a flush attempt.
func (m *Textfile) ObserveFlush(added, total time.Duration, err error) {
	if err != nil {
		m.flushes.WithLabelValues("error").Inc()
	} else {
		m.flushes.WithLabelValues("ok").Inc()
		m.activeSeconds.Add(added.Seconds())
		m.totalSeconds.Set(total.Seconds())
	}
	m.write()
}

// ObserveCheck records an activity check.
func (m *Textfile) ObserveCheck(result domain.GuardResult) {
	answer := "skipped"
	if result.Prompted {
		answer = result.Answer.String()
	}
	m.checks.WithLabelValues(answer).Inc()
	m.terminations.Add(float64(len(result.Terminated)))
	m.write()
}

func (m *Textfile) write() {
	if m.path == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		m.logger.Warn("failed to write metrics textfile",
			zap.String("path", m.path),
			zap.Error(err))
	}
}

// Ensure Textfile implements domain.Metrics.
var _ domain.Metrics = (*Textfile)(nil)
