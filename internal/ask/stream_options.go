package ask

// streamLimits holds the pop'd streaming-control knobs the original
// takes out of options before passing the rest through to the engine.
type streamLimits struct {
	timeLimitMs        int
	hasTimeLimit       bool
	maxTokensStreamed  int
	heartbeatMs        int
}

// extractStreamLimits pops time_limit_ms/max_tokens_streamed/heartbeat_ms
// out of opts (mutating a copy, not the caller's map) and returns the
// remaining generation options plus the parsed limits.
func extractStreamLimits(options map[string]interface{}, defaultMaxTokens int) (map[string]interface{}, streamLimits) {
	opts := map[string]interface{}{}
	for k, v := range options {
		opts[k] = v
	}

	limits := streamLimits{maxTokensStreamed: defaultMaxTokens}

	if v, ok := popInt(opts, "time_limit_ms"); ok {
		limits.timeLimitMs = v
		limits.hasTimeLimit = true
	}
	if v, ok := popInt(opts, "max_tokens_streamed"); ok {
		limits.maxTokensStreamed = v
	}
	if v, ok := popInt(opts, "heartbeat_ms"); ok {
		limits.heartbeatMs = v
	}
	return opts, limits
}

func popInt(m map[string]interface{}, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	delete(m, key)
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
