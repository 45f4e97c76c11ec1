package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestToolsRequestsTotal_Increments(t *testing.T) {
	ToolsRequestsTotal.WithLabelValues("http_get", "fetch", "acme").Inc()
	got := testutil.ToFloat64(ToolsRequestsTotal.WithLabelValues("http_get", "fetch", "acme"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestExportRunning_GaugeSetAndSub(t *testing.T) {
	ExportRunning.WithLabelValues("docs", "acme").Set(0)
	ExportRunning.WithLabelValues("docs", "acme").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(ExportRunning.WithLabelValues("docs", "acme")))
	ExportRunning.WithLabelValues("docs", "acme").Dec()
	assert.Equal(t, float64(0), testutil.ToFloat64(ExportRunning.WithLabelValues("docs", "acme")))
}
