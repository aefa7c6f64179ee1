//go:build !noprom

package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	storeTotal   *prom.CounterVec
	storeSeconds *prom.HistogramVec
	toolTotal    *prom.CounterVec
	toolSeconds  *prom.HistogramVec
	cacheTotal   *prom.CounterVec
	sweepDeleted *prom.CounterVec
	maintErrors  *prom.CounterVec
}

func (p *promRecorder) IncStoreOpTotal(op string, success bool) {
	p.storeTotal.WithLabelValues(op, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveStoreOpSeconds(op string, success bool, seconds float64) {
	p.storeSeconds.WithLabelValues(op, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncEmbeddingCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheTotal.WithLabelValues(outcome).Inc()
}

func (p *promRecorder) IncSweepDeleted(policy string, n int) {
	p.sweepDeleted.WithLabelValues(policy).Add(float64(n))
}

func (p *promRecorder) IncMaintenanceError(loop string) {
	p.maintErrors.WithLabelValues(loop).Inc()
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := &promRecorder{
		storeTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "memory_store_ops_total",
			Help: "Total number of memory store operations",
		}, []string{"op", "success"}),
		storeSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "memory_store_op_seconds",
			Help:    "Memory store operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total number of tool handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		cacheTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "embedding_cache_requests_total",
			Help: "Embedding cache lookups by outcome",
		}, []string{"outcome"}),
		sweepDeleted: prom.NewCounterVec(prom.CounterOpts{
			Name: "retention_sweep_deleted_total",
			Help: "Entities removed by the retention sweep, by policy",
		}, []string{"policy"}),
		maintErrors: prom.NewCounterVec(prom.CounterOpts{
			Name: "maintenance_errors_total",
			Help: "Background maintenance errors by loop",
		}, []string{"loop"}),
	}

	registry.MustRegister(p.storeTotal, p.storeSeconds, p.toolTotal, p.toolSeconds,
		p.cacheTotal, p.sweepDeleted, p.maintErrors)
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
