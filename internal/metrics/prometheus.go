package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a Metrics implementation backed by client_golang.
// Collectors are created and registered on first use of a name.
type PrometheusMetrics struct {
	namespace  string
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a PrometheusMetrics registering on r.
// If r is nil, the default registerer is used.
func NewPrometheusMetrics(namespace string, r prometheus.Registerer) *PrometheusMetrics {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		namespace:  namespace,
		registerer: r,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Flush is a no-op: samples are exported when the registry is scraped.
func (p *PrometheusMetrics) Flush(ctx context.Context) error { return nil }

// IncrementCounter adds value to the named counter.
func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctr, ok := p.counters[name]
	if !ok {
		c, err := p.register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
		}))
		if err != nil {
			return err
		}
		ctr = c.(prometheus.Counter)
		p.counters[name] = ctr
	}
	ctr.Add(float64(value))
	return nil
}

// RecordHistogram observes value on the named histogram.
func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.histograms[name]
	if !ok {
		c, err := p.register(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // milliseconds
		}))
		if err != nil {
			return err
		}
		h = c.(prometheus.Histogram)
		p.histograms[name] = h
	}
	h.Observe(value)
	return nil
}

// register adopts an already registered collector of the same description.
func (p *PrometheusMetrics) register(c prometheus.Collector) (prometheus.Collector, error) {
	if err := p.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}
