package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllama_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "hello", "done": true})
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{BaseURL: srv.URL})
	out, err := o.Generate(context.Background(), "hi", "llama2", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["response"])
}

func TestOllama_Generate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{BaseURL: srv.URL})
	_, err := o.Generate(context.Background(), "hi", "llama2", nil)
	assert.Error(t, err)
}

func TestOllama_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"he", "llo"} {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": chunk, "done": false})
			flusher.Flush()
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "", "done": true})
		flusher.Flush()
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{BaseURL: srv.URL})
	ch, err := o.GenerateStream(context.Background(), "hi", "llama2", nil)
	require.NoError(t, err)

	var text string
	for c := range ch {
		require.NoError(t, c.Err)
		text += c.Text
	}
	assert.Equal(t, "hello", text)
}

func TestOllama_Embeddings(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{BaseURL: srv.URL})
	vecs, err := o.Embeddings(context.Background(), []string{"a", "b"}, "llama2")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, vecs, 2)
	assert.Equal(t, []float64{0.1, 0.2}, vecs[0])
}
