package ask

import (
	"context"
	"time"

	"github.com/neal-yes/rag-gateway/internal/engine"
)

// drainWithHeartbeat pumps ch to sw, injecting a [heartbeat] frame
// whenever the channel is idle past heartbeatMs, and enforcing the
// time-limit/max-tokens caps — the Go analogue of the original's
// asyncio.Queue-based _with_heartbeat. preloaded, if non-nil, is
// written first (the winning generator's already-read first chunk).
func drainWithHeartbeat(ctx context.Context, sw *sseWriter, ch <-chan engine.StreamChunk, limits streamLimits, preloaded *engine.StreamChunk) {
	start := time.Now()
	tokens := 0

	emit := func(chunk engine.StreamChunk) (stop bool) {
		if chunk.Err != nil {
			sw.errorFrame(errClassName(chunk.Err), chunk.Err.Error())
			return true
		}
		if chunk.Text != "" {
			sw.text(chunk.Text)
			tokens++
		}
		if chunk.Done {
			return true
		}
		if limits.maxTokensStreamed > 0 && tokens >= limits.maxTokensStreamed {
			return true
		}
		if limits.hasTimeLimit && time.Since(start).Milliseconds() >= int64(limits.timeLimitMs) {
			return true
		}
		return false
	}

	if preloaded != nil {
		if emit(*preloaded) {
			sw.done()
			return
		}
	}

	for {
		var heartbeatCh <-chan time.Time
		if limits.heartbeatMs > 0 {
			heartbeatCh = time.After(time.Duration(limits.heartbeatMs) * time.Millisecond)
		}

		select {
		case chunk, ok := <-ch:
			if !ok {
				sw.done()
				return
			}
			if emit(chunk) {
				sw.done()
				return
			}
		case <-heartbeatCh:
			sw.heartbeat()
			if limits.hasTimeLimit && time.Since(start).Milliseconds() >= int64(limits.timeLimitMs) {
				sw.done()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func errClassName(err error) string {
	if err == nil {
		return "Error"
	}
	return "GenerationError"
}
