package ask

import (
	"context"
	"testing"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DefaultCollection: "docs",
		DefaultTopK:       3,
		DefaultNumPredict: 64,
		Model:             "llama3",
		EmbedModel:        "nomic-embed-text",
	}
}

func TestAsk_PlainGeneration(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{response: "hello there"},
		Config:    testConfig(),
	}

	resp, err := p.Ask(context.Background(), "acme", "req-1", Request{Query: "hi", UseRAG: false})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp["response"])
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, false, meta["use_rag"])
}

func TestAsk_RAG_NoCollection(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{response: "unused"},
		Embedder:  &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index:     &fakeIndex{exists: false},
		Config:    testConfig(),
	}

	resp, err := p.Ask(context.Background(), "acme", "req-1", Request{Query: "hi", UseRAG: true})
	require.NoError(t, err)
	assert.Equal(t, "No relevant information was found in the documents.", resp["response"])
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, 0, meta["matches"])
}

func TestAsk_RAG_NoContexts(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{response: "unused"},
		Embedder:  &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index:     &fakeIndex{exists: true, scored: nil},
		Config:    testConfig(),
	}

	resp, err := p.Ask(context.Background(), "acme", "req-1", Request{Query: "hi", UseRAG: true})
	require.NoError(t, err)
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, false, meta["match"])
}

func TestAsk_RAG_WithContexts(t *testing.T) {
	p := &Pipeline{
		Generator: &fakeGenerator{response: "the answer"},
		Embedder:  &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index: &fakeIndex{
			exists: true,
			scored: []engine.ScoredPoint{
				{Point: engine.Point{ID: "1", Payload: map[string]interface{}{"text": "some relevant document text"}}, Score: 0.9},
			},
		},
		Config: testConfig(),
	}

	resp, err := p.Ask(context.Background(), "acme", "req-1", Request{Query: "hi", UseRAG: true})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp["response"])
	sources := resp["sources"].([]source)
	assert.Len(t, sources, 1)
}

func TestAsk_EmbeddingFailureIsUpstreamError(t *testing.T) {
	p := &Pipeline{
		Embedder: &fakeEmbedder{vecs: nil},
		Config:   testConfig(),
	}
	_, err := p.Ask(context.Background(), "acme", "req-1", Request{Query: "hi", UseRAG: true})
	assert.Error(t, err)
}

func TestPreflight_SoftFailsOnEmbedError(t *testing.T) {
	p := &Pipeline{
		Embedder: &fakeEmbedder{err: assertErr("boom")},
		Config:   testConfig(),
	}
	resp := p.Preflight(context.Background(), "acme", "req-1", PreflightRequest{Query: "hi"})
	assert.Equal(t, false, resp["ok"])
}

func TestPreflight_OkWithContexts(t *testing.T) {
	p := &Pipeline{
		Embedder: &fakeEmbedder{vecs: [][]float64{{0.1, 0.2}}},
		Index: &fakeIndex{
			exists: true,
			scored: []engine.ScoredPoint{
				{Point: engine.Point{ID: "1", Payload: map[string]interface{}{"text": "relevant text here"}}, Score: 0.8},
			},
		},
		Config: testConfig(),
	}
	resp := p.Preflight(context.Background(), "acme", "req-1", PreflightRequest{Query: "hi"})
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, 1, resp["contexts_count"])
}

type assertErrType string

func (e assertErrType) Error() string { return string(e) }

func assertErr(s string) error { return assertErrType(s) }
