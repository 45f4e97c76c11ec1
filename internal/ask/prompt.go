package ask

import (
	"fmt"
	"strings"

	"github.com/neal-yes/rag-gateway/internal/engine"
)

const (
	defaultMaxDocs        = 1
	defaultPerDocMaxChars = 180
	defaultTotalMaxChars  = 480
	shortCircuitMinChars  = 80
)

// buildPrompt assembles the generation prompt from the retrieved
// contexts, or a bare-query prompt when none were retrieved.
func buildPrompt(query string, contexts []string) string {
	if len(contexts) == 0 {
		return fmt.Sprintf("Question: %s\nAnswer in no more than two sentences.", query)
	}
	return fmt.Sprintf(
		"Context: %s\nQuestion: %s\nAnswer concisely, in no more than two sentences, using only the context above.",
		strings.Join(contexts, "\n\n"), query,
	)
}

// source is one retrieved document surfaced to the caller alongside
// the generated answer.
type source struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// prepareContexts dedupes retrieved text by content, truncates each
// snippet to perDocMaxChars, and stops once either maxDocs or
// totalMaxChars is reached — matching the original's greedy packing.
func prepareContexts(scored []engine.ScoredPoint) ([]string, []source) {
	seen := map[string]struct{}{}
	var contexts []string
	var sources []source
	totalChars := 0

	for _, s := range scored {
		text, _ := s.Payload["text"].(string)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}

		snippet := text
		if len(snippet) > defaultPerDocMaxChars {
			snippet = snippet[:defaultPerDocMaxChars]
		}
		if totalChars+len(snippet) > defaultTotalMaxChars {
			break
		}
		contexts = append(contexts, snippet)
		totalChars += len(snippet)
		sources = append(sources, source{ID: s.ID, Score: s.Score, Payload: s.Payload})
		if len(contexts) >= defaultMaxDocs {
			break
		}
	}
	return contexts, sources
}

func contextTotalLen(contexts []string) int {
	total := 0
	for _, c := range contexts {
		total += len(c)
	}
	return total
}

func scoreStats(scored []engine.ScoredPoint) (max float64, avg float64, has bool) {
	if len(scored) == 0 {
		return 0, 0, false
	}
	sum := 0.0
	max = scored[0].Score
	for _, s := range scored {
		if s.Score > max {
			max = s.Score
		}
		sum += s.Score
	}
	return max, sum / float64(len(scored)), true
}
