// Package guard implements the per-(tenant,tool,fingerprint) guard
// stack: validation, rate limiting, circuit breaking, TTL caching,
// single-flight serialization, and bounded linear-backoff retry,
// wrapped around a caller-supplied attempt function.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/metrics"
)

// Policy is the set of numeric guard-stack knobs a request carries,
// produced by merging tool-invocation policy layers (see
// internal/toolsgw).
type Policy struct {
	RateLimitPerSec   int
	CacheTTLMs        int
	CircuitThreshold  int
	CircuitCooldownMs int
	RetryMax          int
	BackoffMs         int
}

// DefaultPolicy mirrors tool_executor.py's module defaults.
func DefaultPolicy() Policy {
	return Policy{
		RateLimitPerSec:   5,
		CacheTTLMs:        0,
		CircuitThreshold:  5,
		CircuitCooldownMs: 30000,
		RetryMax:          0,
		BackoffMs:         100,
	}
}

// Request is one guarded tool invocation.
type Request struct {
	Tenant     string
	ToolType   string
	ToolName   string
	Params     map[string]interface{}
	Normalized map[string]interface{}
	Options    map[string]interface{}
	Policy     Policy

	// Validate runs before any metric or guard check; a non-nil error
	// short-circuits the whole call as a BadRequest.
	Validate func() error

	// Run performs one attempt against the normalized params. It is
	// invoked up to Policy.RetryMax+1 times.
	Run func(ctx context.Context) (map[string]interface{}, error)
}

// Result is a guarded tool invocation's outcome.
type Result struct {
	Result    map[string]interface{}
	FromCache bool
}

// Executor is the shared guard stack all tool invocations in the
// process run through. It is constructed once at startup — the
// rate/breaker/cache/single-flight state it holds is intentionally
// process-global, matching tool_executor.py's module-level dicts.
type Executor struct {
	rate         *RateLimiter
	breaker      *Breaker
	cache        *Cache
	singleflight *SingleFlight
	sleep        func(time.Duration)
}

// NewExecutor builds a guard stack executor.
func NewExecutor() *Executor {
	return &Executor{
		rate:         NewRateLimiter(),
		breaker:      NewBreaker(),
		cache:        NewCache(),
		singleflight: NewSingleFlight(),
		sleep:        time.Sleep,
	}
}

// Execute runs req through the guard stack in the fixed order:
// validate, metric, rate-limit, breaker precheck, cache lookup,
// single-flight, attempt loop.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Validate != nil {
		if err := req.Validate(); err != nil {
			return nil, gwerrors.New(gwerrors.BadRequest, err.Error(), err)
		}
	}

	key := Fingerprint(req.Tenant, req.ToolType, req.ToolName, req.Params, req.Normalized)
	labels := []string{req.ToolType, req.ToolName, req.Tenant}

	metrics.ToolsRequestsTotal.WithLabelValues(labels...).Inc()
	timer := time.Now()
	defer func() {
		metrics.ToolsLatencySeconds.WithLabelValues(labels...).Observe(time.Since(timer).Seconds())
	}()

	if !e.rate.Allow(key, req.Policy.RateLimitPerSec) {
		metrics.ToolsRateLimitedTotal.WithLabelValues(labels...).Inc()
		return nil, gwerrors.NewRateLimited(
			fmt.Sprintf("rate limit exceeded for %s", req.ToolName), nil, nil)
	}

	if e.breaker.Precheck(key) {
		metrics.ToolsCircuitOpenTotal.WithLabelValues(labels...).Inc()
		return nil, gwerrors.New(gwerrors.ServiceUnavailable, "circuit open", nil)
	}

	if req.Policy.CacheTTLMs > 0 {
		if cached, ok := e.cache.Get(key); ok {
			metrics.ToolsCacheHitTotal.WithLabelValues(labels...).Inc()
			out := cloneMap(cached)
			out["from_cache"] = true
			return &Result{Result: out, FromCache: true}, nil
		}
	}

	lock := e.singleflight.Lock(key)
	lock.Lock()
	defer lock.Unlock()

	// Re-check the cache: a concurrent caller may have populated it
	// while this call waited for the lock.
	if req.Policy.CacheTTLMs > 0 {
		if cached, ok := e.cache.Get(key); ok {
			metrics.ToolsCacheHitTotal.WithLabelValues(labels...).Inc()
			out := cloneMap(cached)
			out["from_cache"] = true
			return &Result{Result: out, FromCache: true}, nil
		}
	}

	maxAttempts := req.Policy.RetryMax + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := req.Run(ctx)
		if err == nil {
			if req.Policy.CacheTTLMs > 0 {
				e.cache.Put(key, result, time.Duration(req.Policy.CacheTTLMs)*time.Millisecond)
			}
			e.breaker.MarkSuccess(key)

			out := cloneMap(result)
			out["from_cache"] = false
			out["echo"] = maskMap(req.Params)
			out["options"] = maskMap(req.Options)
			return &Result{Result: out, FromCache: false}, nil
		}

		lastErr = err
		if attempt >= maxAttempts {
			e.breaker.MarkFailure(key, req.Policy.CircuitThreshold,
				time.Duration(req.Policy.CircuitCooldownMs)*time.Millisecond)
			metrics.ToolsErrorsTotal.WithLabelValues(append(labels, "attempts_exhausted")...).Inc()
			return nil, gwerrors.New(gwerrors.Upstream, "tool invocation failed", lastErr)
		}

		metrics.ToolsRetriesTotal.WithLabelValues(labels...).Inc()
		backoff := time.Duration(req.Policy.BackoffMs*attempt) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, gwerrors.New(gwerrors.Timeout, "tool invocation cancelled", ctx.Err())
		default:
		}
		e.sleep(backoff)
	}

	// Unreachable: the loop above always returns by maxAttempts.
	return nil, gwerrors.New(gwerrors.Internal, "guard stack exhausted without a result", lastErr)
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+3)
	for k, v := range m {
		out[k] = v
	}
	return out
}
