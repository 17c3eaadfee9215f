// Package metrics records what the AMM engine does: operation outcomes, host
// invocations and scenario runs.
//
// A Collection owns the series names and fans every sample out to its
// backends. Backends only store or export samples; they know nothing about
// the engine.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amerrors "github.com/lugondev/go-amm/internal/errors"
)

// Series recorded by a Collection. Operation series are prefixed with
// OperationPrefix and the operation name, e.g. "amm_swap_failed".
const (
	OperationPrefix     = "amm_"
	SuffixSucceeded     = "_succeeded"
	SuffixFailed        = "_failed"
	SuffixDurationMS    = "_duration_ms"
	RejectionsPrefix    = "amm_rejections_"
	Invocations         = "runtime_invocations"
	Rollbacks           = "runtime_rollbacks"
	InvocationMS        = "runtime_invocation_duration_ms"
	ScenariosRun        = "scenarios_run"
	ScenariosFailed     = "scenarios_failed"
	ScenarioStepsFailed = "scenario_steps_failed"
)

// Metrics is a backend samples are written to.
type Metrics interface {
	IncrementCounter(ctx context.Context, name string, value uint64) error
	RecordHistogram(ctx context.Context, name string, value float64) error
	// Flush reports anything the backend buffers.
	Flush(ctx context.Context) error
}

// Collection names engine samples and delegates them to every backend.
// A nil or empty Collection records nothing.
type Collection struct {
	mu       sync.RWMutex
	backends []Metrics
}

func NewCollection(backends ...Metrics) *Collection {
	return &Collection{backends: backends}
}

// Add registers another backend.
func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends = append(c.backends, m)
}

// Flush flushes every backend and joins their errors.
func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

// OperationMetric returns the series name of an operation outcome.
func OperationMetric(op, suffix string) string {
	return OperationPrefix + op + suffix
}

// RecordOperation records one processed instruction: its outcome, its
// duration and, for rejections, the error code.
func (c *Collection) RecordOperation(ctx context.Context, op string, elapsed time.Duration, err error) error {
	suffix := SuffixSucceeded
	if err != nil {
		suffix = SuffixFailed
	}
	errs := []error{
		c.count(ctx, OperationMetric(op, suffix)),
		c.observe(ctx, OperationMetric(op, SuffixDurationMS), millis(elapsed)),
	}
	if code := amerrors.CodeOf(err); code != "" {
		errs = append(errs, c.count(ctx, RejectionsPrefix+code))
	}
	return errors.Join(errs...)
}

// RecordInvocation records one host invocation and whether it was rolled back.
func (c *Collection) RecordInvocation(ctx context.Context, elapsed time.Duration, rolledBack bool) error {
	errs := []error{
		c.count(ctx, Invocations),
		c.observe(ctx, InvocationMS, millis(elapsed)),
	}
	if rolledBack {
		errs = append(errs, c.count(ctx, Rollbacks))
	}
	return errors.Join(errs...)
}

// RecordScenario records a finished scenario with failedSteps unmet steps.
func (c *Collection) RecordScenario(ctx context.Context, failedSteps int) error {
	errs := []error{c.count(ctx, ScenariosRun)}
	if failedSteps > 0 {
		errs = append(errs,
			c.count(ctx, ScenariosFailed),
			c.add(ctx, ScenarioStepsFailed, uint64(failedSteps)),
		)
	}
	return errors.Join(errs...)
}

func (c *Collection) count(ctx context.Context, name string) error {
	return c.add(ctx, name, 1)
}

func (c *Collection) add(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) observe(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

func (c *Collection) each(fn func(Metrics) error) error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, m := range c.backends {
		if err := fn(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// LogMetrics keeps counters in memory and logs samples through slog. Counter
// values stay readable, which makes it the backend of choice in tests.
type LogMetrics struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	counters map[string]uint64
}

// NewLogMetrics creates a LogMetrics. A nil logger means slog.Default().
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:   logger,
		counters: make(map[string]uint64),
	}
}

// Counter returns the accumulated value of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[name] += value
	l.logger.Debug("counter incremented", "name", name, "value", value, "total", l.counters[name])
	return nil
}

func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.logger.Debug("histogram recorded", "name", name, "value", value)
	return nil
}

// Flush logs every counter.
func (l *LogMetrics) Flush(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	l.logger.Info("metrics flush", "counters", l.counters)
	return nil
}
