package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	internalhttp "github.com/neal-yes/rag-gateway/pkg/internal/http"
)

// OllamaConfig configures the Ollama-backed Generator/Embedder.
type OllamaConfig struct {
	// BaseURL, e.g. http://localhost:11434
	BaseURL string
	// KeepAlive is forwarded to Ollama verbatim on every call.
	KeepAlive string
}

// Ollama talks to a raw Ollama server — /api/generate and
// /api/embeddings, not the OpenAI-compatible /v1/chat/completions
// surface. It implements both Generator and Embedder.
type Ollama struct {
	client       *internalhttp.Client
	streamClient *internalhttp.Client
	keepAlive    string
}

// NewOllama builds an Ollama adapter. The unary client reuses the
// shared internal HTTP client wrapper (connection pooling is
// mandatory for this service); the streaming client is built with no
// overall request timeout, matching the original's separate streaming
// client with timeout=None — a long-running generation must not be
// cut off by a client-wide deadline the way a unary call would be.
func NewOllama(cfg OllamaConfig) *Ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		client: internalhttp.NewClient(internalhttp.Config{
			BaseURL: baseURL,
		}),
		streamClient: internalhttp.NewClient(internalhttp.Config{
			BaseURL:    baseURL,
			HTTPClient: &http.Client{Transport: http.DefaultTransport},
		}),
		keepAlive: cfg.KeepAlive,
	}
}

// Generate performs a unary /api/generate call and returns the raw
// response body as a dynamic map so callers can pull "response" (and
// any engine-specific fields) out without a narrowed struct.
func (o *Ollama) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	if o.keepAlive != "" {
		body["keep_alive"] = o.keepAlive
	}
	for k, v := range options {
		body[k] = v
	}

	resp, err := o.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/api/generate",
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama generate: http %d: %s", resp.StatusCode, string(resp.Body))
	}

	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("ollama generate: decode response: %w", err)
	}
	return out, nil
}

// GenerateStream performs a streaming /api/generate call. Ollama
// streams newline-delimited JSON objects, one per chunk, each with a
// "response" string and a "done" bool — not an SSE byte stream.
func (o *Ollama) GenerateStream(ctx context.Context, prompt, model string, options map[string]interface{}) (<-chan StreamChunk, error) {
	body := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": true,
	}
	if o.keepAlive != "" {
		body["keep_alive"] = o.keepAlive
	}
	for k, v := range options {
		body[k] = v
	}

	resp, err := o.streamClient.DoStream(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/api/generate",
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate_stream: %w", err)
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var frame struct {
				Response string `json:"response"`
				Done     bool   `json:"done"`
			}
			if err := json.Unmarshal(line, &frame); err != nil {
				// Fall back to forwarding the raw line, matching the
				// original's "yield raw line if JSON parse fails".
				select {
				case out <- StreamChunk{Text: string(line)}:
				case <-ctx.Done():
					return
				}
				continue
			}
			if frame.Response != "" {
				select {
				case out <- StreamChunk{Text: frame.Response}:
				case <-ctx.Done():
					return
				}
			}
			if frame.Done {
				select {
				case out <- StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamChunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// Embeddings calls /api/embeddings once per input text — Ollama has
// no batch embeddings endpoint — and assembles the per-text vectors
// into a single batched return, matching the Embedder contract.
func (o *Ollama) Embeddings(ctx context.Context, texts []string, model string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		resp, err := o.client.Do(ctx, internalhttp.Request{
			Method: http.MethodPost,
			Path:   "/api/embeddings",
			Body: map[string]interface{}{
				"model":  model,
				"prompt": text,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embeddings: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("ollama embeddings: http %d: %s", resp.StatusCode, string(resp.Body))
		}

		var out struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, fmt.Errorf("ollama embeddings: decode response: %w", err)
		}
		vectors[i] = out.Embedding
	}
	return vectors, nil
}
