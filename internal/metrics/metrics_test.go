package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	amerrors "github.com/lugondev/go-amm/internal/errors"
)

func TestRecordOperationFansOut(t *testing.T) {
	ctx := context.Background()
	a := NewLogMetrics(nil)
	b := NewLogMetrics(nil)
	c := NewCollection(a)
	c.Add(b)

	name := OperationMetric("swap", SuffixSucceeded)
	if name != "amm_swap_succeeded" {
		t.Errorf("Unexpected metric name %q", name)
	}

	for i := 0; i < 3; i++ {
		if err := c.RecordOperation(ctx, "swap", time.Millisecond, nil); err != nil {
			t.Fatalf("RecordOperation: %v", err)
		}
	}
	if err := c.RecordOperation(ctx, "swap", time.Millisecond, amerrors.SlippageExceeded("output", 1, 2)); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}

	for _, m := range []*LogMetrics{a, b} {
		if got := m.Counter(name); got != 3 {
			t.Errorf("Expected 3 successes, got %d", got)
		}
		if got := m.Counter("amm_swap_failed"); got != 1 {
			t.Errorf("Expected 1 failure, got %d", got)
		}
		if got := m.Counter("amm_rejections_SLIPPAGE_EXCEEDED"); got != 1 {
			t.Errorf("Expected 1 slippage rejection, got %d", got)
		}
	}
}

func TestRecordOperationWithoutCode(t *testing.T) {
	m := NewLogMetrics(nil)
	c := NewCollection(m)

	if err := c.RecordOperation(context.Background(), "deposit", 0, errors.New("boom")); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if got := m.Counter("amm_deposit_failed"); got != 1 {
		t.Errorf("Expected 1 failure, got %d", got)
	}
	for name := range m.counters {
		if len(name) > len(RejectionsPrefix) && name[:len(RejectionsPrefix)] == RejectionsPrefix {
			t.Errorf("Unexpected rejection series %q", name)
		}
	}
}

func TestRecordInvocationAndScenario(t *testing.T) {
	ctx := context.Background()
	m := NewLogMetrics(nil)
	c := NewCollection(m)

	_ = c.RecordInvocation(ctx, time.Millisecond, false)
	_ = c.RecordInvocation(ctx, time.Millisecond, true)
	_ = c.RecordScenario(ctx, 0)
	_ = c.RecordScenario(ctx, 2)

	tests := map[string]uint64{
		Invocations:         2,
		Rollbacks:           1,
		ScenariosRun:        2,
		ScenariosFailed:     1,
		ScenarioStepsFailed: 2,
	}
	for name, want := range tests {
		if got := m.Counter(name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestNilCollectionRecordsNothing(t *testing.T) {
	var c *Collection
	if err := c.RecordOperation(context.Background(), "swap", 0, nil); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if err := c.Flush(context.Background()); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

type failingMetrics struct{}

func (failingMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return errors.New("backend down")
}

func (failingMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	return nil
}

func (failingMetrics) Flush(ctx context.Context) error { return nil }

func TestCollectionJoinsBackendErrors(t *testing.T) {
	healthy := NewLogMetrics(nil)
	c := NewCollection(failingMetrics{}, healthy)

	err := c.RecordScenario(context.Background(), 0)
	if err == nil || err.Error() != "backend down" {
		t.Fatalf("Expected backend error, got %v", err)
	}
	if got := healthy.Counter(ScenariosRun); got != 1 {
		t.Errorf("Expected healthy backend to still count, got %d", got)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheusMetrics("amm", reg)
	c := NewCollection(p)

	if err := c.RecordOperation(ctx, "deposit", 2*time.Millisecond, nil); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if err := c.RecordOperation(ctx, "deposit", time.Millisecond, nil); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if got := testutil.ToFloat64(p.counters["amm_deposit_succeeded"]); got != 2 {
		t.Errorf("Expected counter 2, got %v", got)
	}

	// A second instance on the same registry adopts the existing collector.
	q := NewPrometheusMetrics("amm", reg)
	if err := q.IncrementCounter(ctx, "amm_deposit_succeeded", 1); err != nil {
		t.Fatalf("IncrementCounter on shared registry: %v", err)
	}
	if got := testutil.ToFloat64(p.counters["amm_deposit_succeeded"]); got != 3 {
		t.Errorf("Expected shared counter 3, got %v", got)
	}

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 metric families, got %d", n)
	}
}
