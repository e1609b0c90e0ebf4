package usecase

import (
	"time"

	"github.com/ddobrev25/coding-time-tracker/internal/clock"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// Option configures optional collaborators of the use cases.
type Option func(*options)

type options struct {
	clock   domain.Clock
	metrics domain.Metrics
}

// WithClock sets the time source.
func WithClock(c domain.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m domain.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func applyOptions(opts []Option) options {
	o := options{clock: clock.System, metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	return o
}

type nopMetrics struct{}

func (nopMetrics) ObserveSample(bool)                               {}
func (nopMetrics) ObserveFlush(time.Duration, time.Duration, error) {}
func (nopMetrics) ObserveCheck(domain.GuardResult)                  {}
