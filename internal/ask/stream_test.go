package ask

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestStreamAsk_PlainGeneration_EmitsStartedChunksDone(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{
			streamChunks: []engine.StreamChunk{
				{Text: "hel"},
				{Text: "lo", Done: true},
			},
		},
		Config: testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: false})

	body := rec.Body.String()
	assert.Contains(t, body, "data: [started]")
	assert.Contains(t, body, "data: hel")
	assert.Contains(t, body, "data: lo")
	assert.Contains(t, body, "data: [done]")
}

func TestStreamAsk_PlainGeneration_StreamStartErrorEmitsErrorFrame(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{streamErr: assertErr("engine down")},
		Config:    testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: false})

	body := rec.Body.String()
	assert.Contains(t, body, "[error]:")
	assert.Contains(t, body, "engine down")
}

func TestStreamAsk_RAG_NoCollectionEmitsGracefulMessage(t *testing.T) {
	p := &Pipeline{
		Embedder: &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index:    &fakeIndex{exists: false},
		Config:   testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: true})

	body := rec.Body.String()
	assert.Contains(t, body, "No relevant information")
	assert.Contains(t, body, "[done]")
}

func TestStreamAsk_RAG_ShortContextShortCircuitsToPlain(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{
			streamChunks: []engine.StreamChunk{{Text: "short answer", Done: true}},
		},
		Embedder: &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index: &fakeIndex{
			exists: true,
			scored: []engine.ScoredPoint{
				{Point: engine.Point{ID: "1", Payload: map[string]interface{}{"text": "tiny"}}, Score: 0.5},
			},
		},
		Config: testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: true})

	body := rec.Body.String()
	assert.Contains(t, body, "short answer")
	assert.Contains(t, body, "[done]")
}

func TestStreamAsk_RAG_DimensionMismatchEmitsMessage(t *testing.T) {
	p := &Pipeline{
		Embedder: &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index: &fakeIndex{
			exists: true,
			info: map[string]interface{}{
				"config": map[string]interface{}{
					"params": map[string]interface{}{
						"vectors": map[string]interface{}{"size": float64(768)},
					},
				},
			},
		},
		Config: testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: true})

	body := rec.Body.String()
	assert.Contains(t, body, "向量维度不匹配")
}

func TestStreamAsk_RAG_RacesAndStreamsWinner(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{
			streamChunks: []engine.StreamChunk{{Text: "winning answer", Done: true}},
		},
		Embedder: &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index: &fakeIndex{
			exists: true,
			scored: []engine.ScoredPoint{
				{Point: engine.Point{ID: "1", Payload: map[string]interface{}{
					"text": strings.Repeat("relevant document content that is long enough to pass the short circuit threshold. ", 2),
				}}, Score: 0.9},
			},
		},
		Config: testConfig(),
	}

	rec := httptest.NewRecorder()
	p.StreamAsk(context.Background(), "acme", "req-1", rec, Request{Query: "hi", UseRAG: true})

	body := rec.Body.String()
	assert.Contains(t, body, "[started]")
	assert.Contains(t, body, "[done]")
}

func TestDebugStream_EmitsTenTicks(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	DebugStream(ctx, rec, "req-1", "acme")

	body := rec.Body.String()
	assert.Contains(t, body, "tick 1")
	assert.Contains(t, body, "tick 10")
	assert.Contains(t, body, "[done]")
}

func TestDebugWarmup_ReportsLatencyOnSuccess(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{response: "ok"},
		Config:    testConfig(),
	}
	resp := p.DebugWarmup(context.Background(), "acme", "req-1")
	assert.Equal(t, true, resp["ok"])
}

func TestDebugWarmup_ReportsErrorButOkFalse(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{generateErr: assertErr("down")},
		Config:    testConfig(),
	}
	resp := p.DebugWarmup(context.Background(), "acme", "req-1")
	assert.Equal(t, false, resp["ok"])
	assert.Contains(t, resp["error"], "down")
}
