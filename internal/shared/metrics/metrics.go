package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	generationStartedTotal   atomic.Uint64
	generationCompletedTotal atomic.Uint64
	generationFailedTotal    atomic.Uint64
	analysisDegradedTotal    atomic.Uint64
	renderFallbackTotal      atomic.Uint64
	quotaRejectedTotal       atomic.Uint64
	persistenceWarningsTotal atomic.Uint64

	upstreamDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

func IncGenerationStarted()   { generationStartedTotal.Add(1) }
func IncGenerationCompleted() { generationCompletedTotal.Add(1) }
func IncGenerationFailed()    { generationFailedTotal.Add(1) }

// IncAnalysisDegraded counts responses that could not be parsed and were replaced by the neutral result.
func IncAnalysisDegraded() { analysisDegradedTotal.Add(1) }

// IncRenderFallback counts documents returned unmodified because rendering failed.
func IncRenderFallback() { renderFallbackTotal.Add(1) }

func IncQuotaRejected() { quotaRejectedTotal.Add(1) }

// IncPersistenceWarning counts swallowed credit or log write failures.
func IncPersistenceWarning() { persistenceWarningsTotal.Add(1) }

// ObserveUpstreamDurationMs records a generative service round trip in milliseconds.
func ObserveUpstreamDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	upstreamDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "generation_started_total", "Total generation requests accepted", generationStartedTotal.Load())
	writeCounter(&buf, "generation_completed_total", "Total generation requests answered with a document", generationCompletedTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total generation requests that failed upstream", generationFailedTotal.Load())
	writeCounter(&buf, "analysis_degraded_total", "Total unparseable analysis responses", analysisDegradedTotal.Load())
	writeCounter(&buf, "render_fallback_total", "Total renders that fell back to the original document", renderFallbackTotal.Load())
	writeCounter(&buf, "quota_rejected_total", "Total requests refused by the plan ceiling", quotaRejectedTotal.Load())
	writeCounter(&buf, "persistence_warnings_total", "Total swallowed credit or log write failures", persistenceWarningsTotal.Load())
	writeHistogram(&buf, "upstream_duration_ms", "Generative service latency in milliseconds", upstreamDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
