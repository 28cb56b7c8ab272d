// Package metrics records poll outcomes as Prometheus metrics and pushes them
// to a Pushgateway at the end of a CLI or test run.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/imamik/miqcheck/internal/util/poll"
)

// Poll results used as label values.
const (
	ResultSuccess = "success"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// Recorder implements poll.Observer on top of its own registry.
type Recorder struct {
	registry *prometheus.Registry

	attemptsTotal *prometheus.CounterVec
	pollsTotal    *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
}

var _ poll.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with freshly registered metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "miqcheck",
				Subsystem: "poll",
				Name:      "attempts_total",
				Help:      "Total number of condition evaluations by outcome",
			},
			[]string{"poll", "met"},
		),
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "miqcheck",
				Subsystem: "poll",
				Name:      "total",
				Help:      "Total number of finished polls by result",
			},
			[]string{"poll", "result"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "miqcheck",
				Subsystem: "poll",
				Name:      "duration_seconds",
				Help:      "Wall-clock duration of polls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~34min
			},
			[]string{"poll"},
		),
	}
	r.registry.MustRegister(r.attemptsTotal, r.pollsTotal, r.pollDuration)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveAttempt records one evaluation of a condition.
func (r *Recorder) ObserveAttempt(name string, _ int, ok bool) {
	met := "false"
	if ok {
		met = "true"
	}
	r.attemptsTotal.WithLabelValues(label(name), met).Inc()
}

// ObserveDone records the outcome of a poll.
func (r *Recorder) ObserveDone(name string, elapsed time.Duration, err error) {
	r.pollsTotal.WithLabelValues(label(name), Result(err)).Inc()
	r.pollDuration.WithLabelValues(label(name)).Observe(elapsed.Seconds())
}

// Push sends the recorded metrics to the Pushgateway at url under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return errors.New("pushgateway URL is empty")
	}
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("instance", "miqcheck").
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// Result classifies a poll error as a label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case poll.IsTimeout(err):
		return ResultTimeout
	default:
		return ResultError
	}
}

func label(name string) string {
	if name == "" {
		return "unnamed"
	}
	return name
}
