package ask

import (
	"fmt"
	"net/http"
)

// sseWriter writes the gateway's reserved SSE payloads over a flusher-
// capable ResponseWriter, grounded on the teacher's sendSSE helper in
// examples/http-server — extended with the reserved [started]/
// [heartbeat]/[done]/[error] frames the ask pipeline needs.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// WriteHeaders sets the SSE response headers, matching the original's
// exact header set: x-request-id/x-tenant for client correlation,
// Cache-Control/Connection/X-Accel-Buffering to prevent proxy buffering.
func WriteHeaders(w http.ResponseWriter, requestID, tenant string) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("x-request-id", requestID)
	w.Header().Set("x-tenant", tenant)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// newSSEWriter returns nil, false if w does not support flushing.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) raw(payload string) {
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

func (s *sseWriter) started() { s.raw("[started]") }
func (s *sseWriter) done()    { s.raw("[done]") }
func (s *sseWriter) heartbeat() { s.raw("[heartbeat]") }

func (s *sseWriter) text(chunk string) {
	if chunk == "" {
		return
	}
	s.raw(chunk)
}

func (s *sseWriter) errorFrame(class, msg string) {
	s.raw(fmt.Sprintf("[error]: %s: %s", class, msg))
}
