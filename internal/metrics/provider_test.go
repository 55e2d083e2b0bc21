// internal/metrics/provider_test.go
package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/recallbench/internal/providers"
	"github.com/prometheus/client_golang/prometheus"
)

type stubProvider struct {
	recallErr error
	closed    bool
}

func (s *stubProvider) Store(ctx context.Context, content, memContext string) (string, error) {
	return "id", nil
}

func (s *stubProvider) StoreBatch(ctx context.Context, items []providers.MemoryInput) ([]string, error) {
	ids := make([]string, len(items))
	return ids, nil
}

func (s *stubProvider) Recall(ctx context.Context, query string, limit int) ([]providers.Memory, error) {
	if s.recallErr != nil {
		return nil, s.recallErr
	}
	return []providers.Memory{{ID: "1", Content: "c"}}, nil
}

func (s *stubProvider) Clear(ctx context.Context) error { return nil }

func (s *stubProvider) Stats(ctx context.Context) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestProviderRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	stub := &stubProvider{}
	p := NewProvider(stub, rec)
	ctx := context.Background()

	if _, err := p.Store(ctx, "a", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := p.StoreBatch(ctx, []providers.MemoryInput{{Content: "a"}, {Content: "b"}}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}
	if _, err := p.Recall(ctx, "q", 5); err != nil {
		t.Fatalf("Recall: %v", err)
	}
	stub.recallErr = errors.New("down")
	if _, err := p.Recall(ctx, "q", 5); err == nil {
		t.Fatal("expected recall error to pass through")
	}

	total := "recallbench_provider_operations_total"
	if got := counterValue(t, reg, total, map[string]string{"operation": "recall", "status": "ok"}); got != 1 {
		t.Fatalf("expected 1 ok recall, got %v", got)
	}
	if got := counterValue(t, reg, total, map[string]string{"operation": "recall", "status": "error"}); got != 1 {
		t.Fatalf("expected 1 failed recall, got %v", got)
	}
	if got := counterValue(t, reg, "recallbench_provider_memories_stored_total", nil); got != 2 {
		t.Fatalf("expected 2 stored memories, got %v", got)
	}

	if p.Name() != "stub" || p.Unwrap() != stub {
		t.Fatal("expected pass-through identity")
	}
	_ = p.Close()
	if !stub.closed {
		t.Fatal("expected Close to reach the wrapped provider")
	}
}

func TestNewRecorderReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("first NewRecorder: %v", err)
	}
	second, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("second NewRecorder: %v", err)
	}
	if first.operations != second.operations {
		t.Fatal("expected the existing counter vec to be reused")
	}
}

func TestServeExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	rec.observe("recall", time.Now(), nil)

	srv, err := Serve("127.0.0.1:0", reg)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `recallbench_provider_operations_total{operation="recall",status="ok"} 1`) {
		t.Fatalf("unexpected metrics body:\n%s", body)
	}
}
