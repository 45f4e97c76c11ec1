// Package ask implements the RAG question-answering pipeline: plain
// and retrieval-augmented generation, both unary and streamed over
// SSE, plus the retrieval-only preflight diagnostic and the debug
// warmup/tick endpoints.
package ask

// Request is one /ask or /ask/stream call.
type Request struct {
	Query      string
	UseRAG     bool
	TopK       int
	Collection string
	Model      string
	Options    map[string]interface{}
	Filters    map[string]interface{}
}

// PreflightRequest is one /rag/preflight call: embedding + retrieval
// only, no generation.
type PreflightRequest struct {
	Query      string
	TopK       int
	Collection string
	Filters    map[string]interface{}
}

// Config carries the pipeline's tunable defaults, mirroring the
// original's settings module.
type Config struct {
	DefaultCollection string
	DefaultTopK       int
	DefaultNumPredict int
	Model             string
	EmbedModel        string
}

func (c Config) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return c.Model
}

func (c Config) embedModelOrDefault() string {
	if c.EmbedModel != "" {
		return c.EmbedModel
	}
	return c.Model
}

func (c Config) collectionOrDefault(collection string) string {
	if collection != "" {
		return collection
	}
	return c.DefaultCollection
}

func (c Config) topKOrDefault(topK int) int {
	if topK > 0 {
		return topK
	}
	return c.DefaultTopK
}

// withGenerationDefaults mirrors the original's opts.setdefault chain:
// conservative temperature/top_p/repeat_penalty for fast, stable
// outputs, plus num_predict from the tenant's request or the service
// default.
func (c Config) withGenerationDefaults(options map[string]interface{}) map[string]interface{} {
	opts := map[string]interface{}{}
	for k, v := range options {
		opts[k] = v
	}
	if _, ok := opts["num_predict"]; !ok {
		opts["num_predict"] = c.DefaultNumPredict
	}
	setDefault(opts, "temperature", 0.4)
	setDefault(opts, "top_p", 0.9)
	setDefault(opts, "repeat_penalty", 1.05)
	return opts
}

func setDefault(m map[string]interface{}, key string, value interface{}) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
