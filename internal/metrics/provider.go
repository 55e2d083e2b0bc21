// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providers"
	"github.com/prometheus/client_golang/prometheus"
)

// Provider is a decorator that wraps a memory Provider to record call counts and latencies.
type Provider struct {
	wrapped  providers.Provider
	recorder *Recorder
}

// NewProvider creates a metrics-enabled provider that wraps an existing Provider.
func NewProvider(wrapped providers.Provider, recorder *Recorder) *Provider {
	logging.LogEvent("[METRICS] Wrapping %s provider with metrics provider", wrapped.Name())
	return &Provider{wrapped: wrapped, recorder: recorder}
}

// Unwrap returns the decorated provider.
func (p *Provider) Unwrap() providers.Provider { return p.wrapped }

// Store records and forwards the call.
func (p *Provider) Store(ctx context.Context, content, memContext string) (string, error) {
	start := time.Now()
	id, err := p.wrapped.Store(ctx, content, memContext)
	p.recorder.observe("store", start, err)
	return id, err
}

// StoreBatch records and forwards the call, counting the submitted items.
func (p *Provider) StoreBatch(ctx context.Context, items []providers.MemoryInput) ([]string, error) {
	start := time.Now()
	ids, err := p.wrapped.StoreBatch(ctx, items)
	p.recorder.observe("store_batch", start, err)
	if err == nil {
		p.recorder.addStored(len(ids))
	}
	return ids, err
}

// Recall records and forwards the call.
func (p *Provider) Recall(ctx context.Context, query string, limit int) ([]providers.Memory, error) {
	start := time.Now()
	memories, err := p.wrapped.Recall(ctx, query, limit)
	p.recorder.observe("recall", start, err)
	return memories, err
}

// Clear records and forwards the call.
func (p *Provider) Clear(ctx context.Context) error {
	start := time.Now()
	err := p.wrapped.Clear(ctx)
	p.recorder.observe("clear", start, err)
	return err
}

// Stats passes the call through to the wrapped provider.
func (p *Provider) Stats(ctx context.Context) (map[string]any, error) {
	return p.wrapped.Stats(ctx)
}

// Name passes the call through to the wrapped provider.
func (p *Provider) Name() string { return p.wrapped.Name() }

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error { return p.wrapped.Close() }

// Recorder holds the prometheus collectors shared by every decorated provider.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	stored     prometheus.Counter
}

// NewRecorder registers the provider collectors on reg, reusing collectors that
// are already registered under the same names.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recallbench",
			Subsystem: "provider",
			Name:      "operations_total",
			Help:      "Total provider operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recallbench",
			Subsystem: "provider",
			Name:      "operation_duration_seconds",
			Help:      "Provider operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recallbench",
			Subsystem: "provider",
			Name:      "memories_stored_total",
			Help:      "Memories acknowledged by batch stores.",
		}),
	}
	if err := registerOrReuse(reg, &r.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &r.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &r.stored); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) observe(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.operations.WithLabelValues(op, status).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Recorder) addStored(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.stored.Add(float64(n))
}
