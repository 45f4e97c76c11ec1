// Package metrics holds the Prometheus collectors the gateway records
// against. The registry is private: this package never mounts an HTTP
// scrape handler, it only gives the rest of the service something to
// call Inc/Observe/Set on.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the private collector registry every metric in this
// package is registered against.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = newCounterVec(
		"http_requests_total", "Total HTTP requests.", "method", "path", "status")
	HTTPRequestDuration = newHistogramVec(
		"http_request_duration_seconds", "HTTP request duration.", "method", "path", "status")

	EmbedSeconds = newHistogramVec(
		"embed_duration_seconds", "Embedding call duration.", "model")
	RAGRetrievalSeconds = newHistogramVec(
		"rag_retrieval_duration_seconds", "Vector retrieval duration.", "collection")
	LLMGenerateSeconds = newHistogramVec(
		"llm_generate_duration_seconds", "Generation call duration.", "model", "stream")
	RAGMatchesTotal = newCounterVec(
		"rag_matches_total", "RAG retrieval outcomes.", "collection", "has_match")

	ImportSeconds = newHistogramVec(
		"import_duration_seconds", "Import job duration.", "collection")
	ImportRowsTotal = newCounterVec(
		"import_rows_total", "Rows imported.", "collection")
	ImportBatchesTotal = newCounterVec(
		"import_batches_total", "Import batches written.", "collection")
	ImportSkippedTotal = newCounterVec(
		"import_skipped_total", "Rows skipped during import.", "collection", "reason")

	ExportSeconds = newHistogramVec(
		"export_duration_seconds", "Export job duration.", "collection", "tenant")
	ExportRowsTotal = newCounterVec(
		"export_rows_total", "Rows exported.", "collection", "tenant")
	ExportStatusTotal = newCounterVec(
		"export_status_total", "Export job terminal outcomes.", "collection", "status", "tenant")
	ExportRunning = newGaugeVec(
		"export_running", "Export jobs currently running.", "collection", "tenant")

	DownloadSeconds = newHistogramVec(
		"download_duration_seconds", "Direct download duration.", "collection", "gzip", "tenant")
	DownloadBytesTotal = newCounterVec(
		"download_bytes_total", "Bytes streamed by direct download.", "collection", "gzip", "tenant")
	DownloadRowsTotal = newCounterVec(
		"download_rows_total", "Rows streamed by direct download.", "collection", "tenant")
	DownloadRunning = newGaugeVec(
		"download_running", "Direct downloads currently running.", "collection", "gzip", "tenant")

	ToolsRequestsTotal = newCounterVec(
		"tools_requests_total", "Tool invocations attempted.", "tool_type", "tool_name", "tenant")
	ToolsErrorsTotal = newCounterVec(
		"tools_errors_total", "Tool invocations that failed.", "tool_type", "tool_name", "tenant", "reason")
	ToolsRateLimitedTotal = newCounterVec(
		"tools_rate_limited_total", "Tool invocations rejected by the rate limiter.", "tool_type", "tool_name", "tenant")
	ToolsCircuitOpenTotal = newCounterVec(
		"tools_circuit_open_total", "Tool invocations rejected by an open circuit.", "tool_type", "tool_name", "tenant")
	ToolsCacheHitTotal = newCounterVec(
		"tools_cache_hit_total", "Tool invocations served from cache.", "tool_type", "tool_name", "tenant")
	ToolsRetriesTotal = newCounterVec(
		"tools_retries_total", "Tool invocation retry attempts.", "tool_type", "tool_name", "tenant")
	ToolsLatencySeconds = newHistogramVec(
		"tools_request_latency_seconds", "Tool invocation latency.", "tool_type", "tool_name", "tenant")
)

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	Registry.MustRegister(v)
	return v
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	Registry.MustRegister(v)
	return v
}

func newHistogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help}, labels)
	Registry.MustRegister(v)
	return v
}
