package wfassist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "wfassist"
	metricsSubsystem = "client"
)

// clientMetrics holds the collectors registered by WithPrometheus.
type clientMetrics struct {
	operations *prometheus.CounterVec   // operation, status
	duration   *prometheus.HistogramVec // operation
	matches    prometheus.Histogram     // results returned per search
	verdicts   *prometheus.CounterVec   // result: valid, invalid
	coverage   prometheus.Histogram
	corpusSize prometheus.Gauge
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: name, Help: help}
	}
	m := &clientMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"operations_total", "Client operations by type and status.")),
			[]string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "Client operation duration in seconds.",
			// In-process ranking and validation finish in micro- to milliseconds.
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 9),
		}, []string{"operation"}),
		matches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "search_matches",
			Help:      "Examples returned per search.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"checks_total", "Checked documents by result.")),
			[]string{"result"}),
		coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "check_coverage",
			Help:      "Required-field coverage of checked documents.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		corpusSize: prometheus.NewGauge(prometheus.GaugeOpts(opts(
			"corpus_examples", "Examples in the active corpus."))),
	}

	for _, err := range []error{
		registerOrReuse(reg, &m.operations),
		registerOrReuse(reg, &m.duration),
		registerOrReuse(reg, &m.matches),
		registerOrReuse(reg, &m.verdicts),
		registerOrReuse(reg, &m.coverage),
		registerOrReuse(reg, &m.corpusSize),
	} {
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// registerOrReuse registers a collector or adopts the one already registered,
// so several clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("wfassist: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("wfassist: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records client operations. A nil observer, nil logger or nil
// metrics each disable their half.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// searched records a Search call and how many examples it returned.
func (o *observer) searched(ctx context.Context, start time.Time, k int, matches []Match, err error) {
	if o == nil {
		return
	}
	attrs := []slog.Attr{slog.Int("k", k), slog.Int("matches", len(matches))}
	if len(matches) > 0 {
		attrs = append(attrs, slog.String("top_id", matches[0].Example.ID), slog.Float64("top_score", matches[0].Score))
	}
	if err == nil && o.metrics != nil {
		o.metrics.matches.Observe(float64(len(matches)))
	}
	o.finish(ctx, "search", start, err, attrs...)
}

// checked records a Check call with its verdict and coverage.
func (o *observer) checked(ctx context.Context, start time.Time, rep Report, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.finish(ctx, "check", start, err)
		return
	}
	result := "valid"
	if !rep.Valid {
		result = "invalid"
	}
	if o.metrics != nil {
		o.metrics.verdicts.WithLabelValues(result).Inc()
		o.metrics.coverage.Observe(rep.Coverage)
	}
	o.finish(ctx, "check", start, nil,
		slog.String("result", result),
		slog.Int("violations", len(rep.Violations)),
		slog.Float64("coverage", rep.Coverage),
	)
}

// reloaded records a corpus swap. size is the corpus that serves afterwards.
func (o *observer) reloaded(ctx context.Context, start time.Time, requested, size int, err error) {
	if o == nil {
		return
	}
	o.corpusLoaded(size)
	o.finish(ctx, "reload", start, err, slog.Int("requested", requested), slog.Int("examples", size))
}

func (o *observer) corpusLoaded(size int) {
	if o != nil && o.metrics != nil {
		o.metrics.corpusSize.Set(float64(size))
	}
}

func (o *observer) finish(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) {
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("op", op), slog.Duration("duration", dur))
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "wfassist operation failed", append(attrs, slog.Any("error", err))...)
		return
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "wfassist operation completed", attrs...)
}
