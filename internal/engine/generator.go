// Package engine adapts the external text-generation engine, the
// text-embedding engine, and the vector index that the ask pipeline,
// guard stack, and import/export engine are built on top of.
package engine

import "context"

// StreamChunk is one piece of a generation stream: a text delta, an
// end-of-stream marker (Done), or a terminal error.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Generator produces text completions, unary or streamed.
type Generator interface {
	// Generate returns the full response body as a dynamic map —
	// callers pull "response" out of it, matching the engine's own
	// wire shape instead of a narrowed struct.
	Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (map[string]interface{}, error)

	// GenerateStream returns a channel of incremental chunks. The
	// channel is closed after a Done chunk or an error chunk; callers
	// must drain it or cancel ctx to release the underlying connection.
	GenerateStream(ctx context.Context, prompt, model string, options map[string]interface{}) (<-chan StreamChunk, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	// Embeddings returns one vector per input text, in order.
	Embeddings(ctx context.Context, texts []string, model string) ([][]float64, error)
}
