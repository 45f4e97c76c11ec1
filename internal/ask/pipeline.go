package ask

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/metrics"
	"github.com/neal-yes/rag-gateway/pkg/telemetry"
)

// Pipeline wires the generation engine, embedder, and vector index
// into the ask/preflight operations.
type Pipeline struct {
	Generator engine.Generator
	Embedder  engine.Embedder
	Index     engine.VectorIndex
	Config    Config

	// Tracer, when set, enables OTel spans around Ask/StreamAsk. Left
	// nil, the pipeline runs with a no-op tracer.
	Tracer trace.Tracer
}

// Ask answers req.Query, either via plain generation or retrieval-
// augmented generation, matching POST /api/v1/ask.
func (p *Pipeline) Ask(ctx context.Context, tenant, requestID string, req Request) (map[string]interface{}, error) {
	collection := p.Config.collectionOrDefault(req.Collection)
	return telemetry.RecordSpan(ctx, p.tracer(), telemetry.SpanOptions{
		Name:        "ask.pipeline.ask",
		Attributes:  gatewayAttributes(tenant, requestID, collection, req.UseRAG),
		EndWhenDone: true,
	}, func(ctx context.Context, _ trace.Span) (map[string]interface{}, error) {
		return p.ask(ctx, tenant, requestID, req)
	})
}

func (p *Pipeline) ask(ctx context.Context, tenant, requestID string, req Request) (map[string]interface{}, error) {
	model := p.Config.modelOrDefault(req.Model)

	if !req.UseRAG {
		opts := p.Config.withGenerationDefaults(req.Options)
		t0 := time.Now()
		resp, err := p.Generator.Generate(ctx, req.Query, model, opts)
		metrics.LLMGenerateSeconds.WithLabelValues(model, "false").Observe(time.Since(t0).Seconds())
		if err != nil {
			return nil, gwerrors.New(gwerrors.Upstream, fmt.Sprintf("plain generation failed: %v", err), err)
		}
		text, _ := resp["response"].(string)
		return map[string]interface{}{
			"response": text,
			"sources":  []interface{}{},
			"meta": map[string]interface{}{
				"tenant":     tenant,
				"request_id": requestID,
				"use_rag":    false,
			},
		}, nil
	}

	collection := p.Config.collectionOrDefault(req.Collection)
	topK := p.Config.topKOrDefault(req.TopK)
	embedModel := p.Config.embedModelOrDefault()

	t0 := time.Now()
	vecs, err := p.Embedder.Embeddings(ctx, []string{req.Query}, embedModel)
	metrics.EmbedSeconds.WithLabelValues(embedModel).Observe(time.Since(t0).Seconds())
	if err != nil || len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, gwerrors.New(gwerrors.Upstream, "failed to get query embedding", err)
	}

	exists, err := p.Index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, gwerrors.New(gwerrors.Upstream, fmt.Sprintf("collection lookup failed: %v", err), err)
	}
	if !exists {
		return map[string]interface{}{
			"response": "No relevant information was found in the documents.",
			"sources":  []interface{}{},
			"meta": map[string]interface{}{
				"tenant":     tenant,
				"request_id": requestID,
				"use_rag":    true,
				"collection": collection,
				"matches":    0,
			},
		}, nil
	}

	t1 := time.Now()
	scored, err := p.Index.SearchVectors(ctx, collection, vecs[0], topK, req.Filters)
	metrics.RAGRetrievalSeconds.WithLabelValues(collection).Observe(time.Since(t1).Seconds())
	if err != nil {
		return nil, gwerrors.New(gwerrors.Upstream, fmt.Sprintf("rag retrieval failed: %v", err), err)
	}

	contexts, sources := prepareContexts(scored)
	if len(contexts) == 0 {
		metrics.RAGMatchesTotal.WithLabelValues(collection, "false").Inc()
		return map[string]interface{}{
			"response": "No relevant information was found in the documents.",
			"sources":  []interface{}{},
			"meta": map[string]interface{}{
				"tenant":     tenant,
				"request_id": requestID,
				"use_rag":    true,
				"collection": collection,
				"top_k":      topK,
				"match":      false,
			},
		}, nil
	}

	prompt := buildPrompt(req.Query, contexts)
	opts := p.Config.withGenerationDefaults(req.Options)

	t2 := time.Now()
	resp, err := p.Generator.Generate(ctx, prompt, model, opts)
	metrics.LLMGenerateSeconds.WithLabelValues(model, "false").Observe(time.Since(t2).Seconds())
	if err != nil {
		return nil, gwerrors.New(gwerrors.Upstream, fmt.Sprintf("rag generation failed: %v", err), err)
	}

	metrics.RAGMatchesTotal.WithLabelValues(collection, boolString(len(scored) > 0)).Inc()

	text, _ := resp["response"].(string)
	return map[string]interface{}{
		"response": text,
		"sources":  sources,
		"meta": map[string]interface{}{
			"tenant":     tenant,
			"request_id": requestID,
			"use_rag":    true,
			"collection": collection,
			"top_k":      topK,
			"match":      len(scored) > 0,
		},
	}, nil
}

// Preflight runs embedding + retrieval only, soft-failing (ok=false)
// rather than returning an error, so the UI can show a hint without a
// failed request.
func (p *Pipeline) Preflight(ctx context.Context, tenant, requestID string, req PreflightRequest) map[string]interface{} {
	collection := p.Config.collectionOrDefault(req.Collection)
	topK := p.Config.topKOrDefault(req.TopK)
	embedModel := p.Config.embedModelOrDefault()
	meta := map[string]interface{}{"tenant": tenant, "request_id": requestID}

	fail := func(errMsg string) map[string]interface{} {
		return map[string]interface{}{
			"ok":             false,
			"error":          errMsg,
			"contexts_count": 0,
			"ctx_total_len":  0,
			"max_score":      nil,
			"avg_score":      nil,
			"collection":     collection,
			"meta":           meta,
		}
	}

	vecs, err := p.Embedder.Embeddings(ctx, []string{req.Query}, embedModel)
	if err != nil {
		return fail(fmt.Sprintf("preflight embed failed: %v", err))
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fail("preflight embed returned empty vector")
	}

	exists, err := p.Index.CollectionExists(ctx, collection)
	if err != nil {
		return fail(fmt.Sprintf("preflight collection lookup failed: %v", err))
	}
	if !exists {
		return map[string]interface{}{
			"ok":             true,
			"contexts_count": 0,
			"ctx_total_len":  0,
			"max_score":      nil,
			"avg_score":      nil,
			"collection":     collection,
			"meta":           meta,
		}
	}

	scored, err := p.Index.SearchVectors(ctx, collection, vecs[0], topK, req.Filters)
	if err != nil {
		return fail(fmt.Sprintf("preflight retrieval failed: %v", err))
	}

	contexts, sources := prepareContexts(scored)
	maxScore, avgScore, has := scoreStats(scored)

	result := map[string]interface{}{
		"ok":             true,
		"contexts_count": len(contexts),
		"ctx_total_len":  contextTotalLen(contexts),
		"collection":     collection,
		"meta":           meta,
		"sources":        sources,
	}
	if has {
		result["max_score"] = maxScore
		result["avg_score"] = avgScore
	} else {
		result["max_score"] = nil
		result["avg_score"] = nil
	}
	return result
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
