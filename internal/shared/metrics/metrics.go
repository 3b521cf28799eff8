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
	entriesAnalyzedTotal     atomic.Uint64
	entryAnalysisFailedTotal atomic.Uint64
	suggestionsTotal         atomic.Uint64
	checkInsScheduledTotal   atomic.Uint64
	checkInResponsesTotal    atomic.Uint64

	gatewayDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncEntryAnalyzed increments the analyzed-entries counter.
func IncEntryAnalyzed() {
	entriesAnalyzedTotal.Add(1)
}

// IncEntryAnalysisFailed increments the failed-analysis counter.
func IncEntryAnalysisFailed() {
	entryAnalysisFailedTotal.Add(1)
}

// IncSuggestionGenerated increments the generated-suggestions counter.
func IncSuggestionGenerated() {
	suggestionsTotal.Add(1)
}

// IncCheckInScheduled increments the scheduled check-ins counter.
func IncCheckInScheduled() {
	checkInsScheduledTotal.Add(1)
}

// IncCheckInResponse increments the recorded-responses counter.
func IncCheckInResponse() {
	checkInResponsesTotal.Add(1)
}

// ObserveGatewayDurationMs records an AI gateway call duration in milliseconds.
func ObserveGatewayDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	gatewayDuration.Observe(value)
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
	writeCounter(&buf, "entries_analyzed_total", "Total journal entries analyzed", entriesAnalyzedTotal.Load())
	writeCounter(&buf, "entry_analysis_failed_total", "Total journal entry analyses that failed", entryAnalysisFailedTotal.Load())
	writeCounter(&buf, "suggestions_generated_total", "Total check-in suggestions generated", suggestionsTotal.Load())
	writeCounter(&buf, "check_ins_scheduled_total", "Total check-ins scheduled", checkInsScheduledTotal.Load())
	writeCounter(&buf, "check_in_responses_total", "Total check-in responses recorded", checkInResponsesTotal.Load())
	writeHistogram(&buf, "gateway_duration_ms", "AI gateway call duration in milliseconds", gatewayDuration.Snapshot())
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
