package ask

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
)

const raceTimeout = 8 * time.Second

// StreamAsk answers req over SSE, matching POST /api/v1/ask/stream:
// plain generation streams directly; RAG streams embed/retrieve with
// heartbeats during the wait, short-circuits to plain generation when
// contexts are missing or too thin, and otherwise races RAG generation
// against plain generation, streaming whichever produces a first token
// first and cancelling the loser.
func (p *Pipeline) StreamAsk(ctx context.Context, tenant, requestID string, w http.ResponseWriter, req Request) {
	collection := p.Config.collectionOrDefault(req.Collection)
	var span trace.Span
	ctx, span = p.tracer().Start(ctx, "ask.pipeline.stream_ask", trace.WithAttributes(gatewayAttributes(tenant, requestID, collection, req.UseRAG)...))
	defer span.End()

	logger := reqctx.Logger(ctx)
	WriteHeaders(w, requestID, tenant)
	sw, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	model := p.Config.modelOrDefault(req.Model)

	if !req.UseRAG {
		sw.started()
		opts, limits := extractStreamLimits(req.Options, 12)
		opts = applyPlainStreamDefaults(opts, p.Config.DefaultNumPredict)
		ch, err := p.Generator.GenerateStream(ctx, req.Query, model, opts)
		if err != nil {
			sw.errorFrame("GenerationError", err.Error())
			sw.done()
			return
		}
		drainWithHeartbeat(ctx, sw, ch, limits, nil)
		return
	}

	p.ragStream(ctx, sw, tenant, requestID, model, req, logger)
}

func applyPlainStreamDefaults(opts map[string]interface{}, defaultNumPredict int) map[string]interface{} {
	if _, ok := opts["num_predict"]; !ok {
		opts["num_predict"] = defaultNumPredict
	}
	setDefault(opts, "temperature", 0.4)
	setDefault(opts, "top_p", 0.9)
	setDefault(opts, "repeat_penalty", 1.05)
	setDefault(opts, "stop", []string{"\n\n["})
	return opts
}

func applyRAGStreamDefaults(opts map[string]interface{}) map[string]interface{} {
	if _, ok := opts["num_predict"]; !ok {
		opts["num_predict"] = 2
	}
	setDefault(opts, "temperature", 0.1)
	setDefault(opts, "top_p", 0.65)
	setDefault(opts, "repeat_penalty", 1.05)
	setDefault(opts, "num_ctx", 320)
	setDefault(opts, "stop", []string{"\n\n["})
	return opts
}

type logger interface {
	Info(msg string, args ...any)
}

func (p *Pipeline) ragStream(ctx context.Context, sw *sseWriter, tenant, requestID, model string, req Request, log logger) {
	sw.started()

	collection := p.Config.collectionOrDefault(req.Collection)
	topK := p.Config.topKOrDefault(req.TopK)
	embedModel := p.Config.embedModelOrDefault()

	opts, limits := extractStreamLimits(req.Options, 3)
	opts = applyRAGStreamDefaults(opts)

	vecs, err := p.embedWithHeartbeat(ctx, sw, req.Query, embedModel, limits.heartbeatMs)
	if err != nil || len(vecs) == 0 || len(vecs[0]) == 0 {
		sw.errorFrame("EmbeddingError", "failed to get query embedding")
		sw.done()
		return
	}

	exists, err := p.Index.CollectionExists(ctx, collection)
	if err != nil || !exists {
		sw.text("No relevant information was found in the documents.")
		sw.done()
		return
	}

	dim := len(vecs[0])
	if info, err := p.Index.GetCollectionInfo(ctx, collection); err == nil {
		if expected, ok := engine.ExtractVectorSize(info); ok && expected != 0 && expected != dim {
			sw.text(fmt.Sprintf(
				"向量维度不匹配：集合期望 %d，查询为 %d；请使用相同嵌入模型重建集合或切换到匹配的集合。",
				expected, dim))
			sw.done()
			return
		}
	}

	scored, err := p.searchWithHeartbeat(ctx, sw, collection, vecs[0], topK, req.Filters, limits.heartbeatMs)
	if err != nil {
		sw.errorFrame("QdrantSearchError", err.Error())
		sw.done()
		return
	}

	contexts, _ := prepareContexts(scored)
	ctxTotalLen := contextTotalLen(contexts)
	prompt := buildPrompt(req.Query, contexts)

	if len(contexts) == 0 || ctxTotalLen < shortCircuitMinChars {
		reason := "too_short"
		if len(contexts) == 0 {
			reason = "no_contexts"
		}
		log.Info("rag_short_circuit", "reason", reason, "ctx_total_len", ctxTotalLen)

		plainOpts := cloneOptions(opts)
		plainOpts["num_predict"] = capInt(intOrDefault(plainOpts["num_predict"], 3), 3)
		plainCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := p.Generator.GenerateStream(plainCtx, req.Query, model, plainOpts)
		if err != nil {
			sw.errorFrame("GenerationError", err.Error())
			sw.done()
			return
		}
		drainWithHeartbeat(ctx, sw, ch, limits, nil)
		return
	}

	p.raceGeneration(ctx, sw, model, prompt, req.Query, opts, limits, log)
}

// raceGeneration starts RAG and plain generation concurrently and
// streams whichever produces a first token within raceTimeout,
// cancelling the other. If neither produces a first token in time,
// it falls back to a fresh, shorter plain generation.
func (p *Pipeline) raceGeneration(ctx context.Context, sw *sseWriter, model, prompt, query string, opts map[string]interface{}, limits streamLimits, log logger) {
	ragCtx, ragCancel := context.WithCancel(ctx)
	plainCtx, plainCancel := context.WithCancel(ctx)

	ragOpts := opts
	plainOpts := cloneOptions(opts)
	plainOpts["num_predict"] = capInt(intOrDefault(plainOpts["num_predict"], 4), 4)

	ragCh, ragErr := p.Generator.GenerateStream(ragCtx, prompt, model, ragOpts)
	plainCh, plainErr := p.Generator.GenerateStream(plainCtx, query, model, plainOpts)

	raceStart := time.Now()

	if ragErr != nil && plainErr != nil {
		ragCancel()
		plainCancel()
		sw.errorFrame("GenerationError", "both generation attempts failed to start")
		sw.done()
		return
	}

	var winnerCh <-chan engine.StreamChunk
	var winner string
	var firstChunk engine.StreamChunk
	gotFirst := false

	select {
	case c, ok := <-ragCh:
		if ok {
			winner, winnerCh, firstChunk, gotFirst = "rag", ragCh, c, true
		}
	case c, ok := <-plainCh:
		if ok {
			winner, winnerCh, firstChunk, gotFirst = "plain", plainCh, c, true
		}
	case <-time.After(raceTimeout):
	case <-ctx.Done():
		ragCancel()
		plainCancel()
		return
	}

	if !gotFirst {
		ragCancel()
		plainCancel()
		log.Info("rag_race_no_first_token", "elapsed_ms", time.Since(raceStart).Milliseconds(), "fallback", "plain")

		fbCtx, fbCancel := context.WithCancel(ctx)
		defer fbCancel()
		ch, err := p.Generator.GenerateStream(fbCtx, query, model, plainOpts)
		if err != nil {
			sw.errorFrame("GenerationError", err.Error())
			sw.done()
			return
		}
		drainWithHeartbeat(ctx, sw, ch, limits, nil)
		return
	}

	log.Info("rag_race_winner", "winner", winner, "elapsed_ms", time.Since(raceStart).Milliseconds())

	if winner == "rag" {
		plainCancel()
	} else {
		ragCancel()
	}
	defer ragCancel()
	defer plainCancel()

	drainWithHeartbeat(ctx, sw, winnerCh, limits, &firstChunk)
}

func (p *Pipeline) embedWithHeartbeat(ctx context.Context, sw *sseWriter, query, model string, heartbeatMs int) ([][]float64, error) {
	type result struct {
		vecs [][]float64
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		vecs, err := p.Embedder.Embeddings(ctx, []string{query}, model)
		resultCh <- result{vecs, err}
	}()

	for {
		var heartbeatCh <-chan time.Time
		if heartbeatMs > 0 {
			heartbeatCh = time.After(time.Duration(heartbeatMs) * time.Millisecond)
		}
		select {
		case r := <-resultCh:
			return r.vecs, r.err
		case <-heartbeatCh:
			sw.heartbeat()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pipeline) searchWithHeartbeat(ctx context.Context, sw *sseWriter, collection string, query []float64, topK int, filters map[string]interface{}, heartbeatMs int) ([]engine.ScoredPoint, error) {
	type result struct {
		scored []engine.ScoredPoint
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		scored, err := p.Index.SearchVectors(ctx, collection, query, topK, filters)
		resultCh <- result{scored, err}
	}()

	for {
		var heartbeatCh <-chan time.Time
		if heartbeatMs > 0 {
			heartbeatCh = time.After(time.Duration(heartbeatMs) * time.Millisecond)
		}
		select {
		case r := <-resultCh:
			return r.scored, r.err
		case <-heartbeatCh:
			sw.heartbeat()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func cloneOptions(opts map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

func intOrDefault(v interface{}, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func capInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}
