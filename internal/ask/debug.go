package ask

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DebugStream emits ten ticks half a second apart, for smoke-testing
// that SSE headers and proxy buffering are configured correctly end to
// end, independent of the generation engine.
func DebugStream(ctx context.Context, w http.ResponseWriter, requestID, tenant string) {
	WriteHeaders(w, requestID, tenant)
	sw, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sw.started()
	for i := 1; i <= 10; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
		sw.text(fmt.Sprintf("tick %d", i))
	}
	sw.done()
}

// DebugWarmup triggers a short non-streaming generation to warm up the
// model and underlying runtime. Errors are surfaced in the body with a
// 200 status, matching the original's CI/smoke-friendly behavior.
func (p *Pipeline) DebugWarmup(ctx context.Context, tenant, requestID string) map[string]interface{} {
	t0 := time.Now()
	_, err := p.Generator.Generate(ctx, "warmup", p.Config.Model, map[string]interface{}{"num_predict": 8})
	latencyMs := float64(time.Since(t0).Microseconds()) / 1000.0

	meta := map[string]interface{}{"tenant": tenant, "request_id": requestID}
	if err != nil {
		return map[string]interface{}{
			"ok":         false,
			"error":      err.Error(),
			"latency_ms": latencyMs,
			"meta":       meta,
		}
	}
	return map[string]interface{}{
		"ok":         true,
		"latency_ms": latencyMs,
		"meta":       meta,
	}
}
