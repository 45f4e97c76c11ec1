package toolsgw

import (
	"context"
	"fmt"
	"net/http"

	"github.com/neal-yes/rag-gateway/internal/guard"
)

// Gateway wires the policy store and host policy into the shared
// guard stack for the two built-in tool types.
type Gateway struct {
	Policies   *PolicyStore
	HostPolicy *HostPolicy
	Guard      *guard.Executor
	Client     *http.Client
}

// InvokeRequest is one /tools/invoke call.
type InvokeRequest struct {
	Tenant   string
	ToolType string
	ToolName string
	Params   map[string]interface{}
	Options  map[string]interface{}
}

// InvokeResponse is the JSON body returned to the caller.
type InvokeResponse struct {
	RequestID string                 `json:"request_id"`
	ToolType  string                 `json:"tool_type"`
	ToolName  string                 `json:"tool_name"`
	Result    map[string]interface{} `json:"result"`
}

// Invoke merges policy layers, builds the tool-specific
// validate/run closures, and runs the call through the guard stack.
func (g *Gateway) Invoke(ctx context.Context, requestID string, req InvokeRequest) (*InvokeResponse, error) {
	layers := g.Policies.Resolve(req.Tenant, req.ToolType, req.ToolName, req.Options)
	policy := policyFromOptions(layers.Merged)

	var (
		validate   func() error
		run        func(ctx context.Context) (map[string]interface{}, error)
		normalized map[string]interface{}
	)
	switch req.ToolType {
	case "http_get":
		validate, run, normalized = BuildHTTPGet(g.Client, g.HostPolicy, req.Params, layers.Merged)
	case "http_post":
		validate, run, normalized = BuildHTTPPost(g.Client, g.HostPolicy, req.Params, layers.Merged)
	default:
		return nil, fmt.Errorf("unknown tool type %q", req.ToolType)
	}

	result, err := g.Guard.Execute(ctx, guard.Request{
		Tenant:     req.Tenant,
		ToolType:   req.ToolType,
		ToolName:   req.ToolName,
		Params:     req.Params,
		Normalized: normalized,
		Options:    layers.Merged,
		Policy:     policy,
		Validate:   validate,
		Run:        run,
	})
	if err != nil {
		return nil, err
	}

	return &InvokeResponse{
		RequestID: requestID,
		ToolType:  req.ToolType,
		ToolName:  req.ToolName,
		Result:    result.Result,
	}, nil
}

// Preview returns the policy-layer breakdown without executing the
// tool, for the /tools/preview diagnostic endpoint.
func (g *Gateway) Preview(tenant, toolType, toolName string, requestOptions map[string]interface{}) Layers {
	return g.Policies.Resolve(tenant, toolType, toolName, requestOptions)
}

func policyFromOptions(options map[string]interface{}) guard.Policy {
	p := guard.DefaultPolicy()
	if v, ok := asInt(options["rate_limit_per_sec"]); ok {
		p.RateLimitPerSec = v
	}
	if v, ok := asInt(options["cache_ttl_ms"]); ok {
		p.CacheTTLMs = v
	}
	if v, ok := asInt(options["circuit_threshold"]); ok {
		p.CircuitThreshold = v
	}
	if v, ok := asInt(options["circuit_cooldown_ms"]); ok {
		p.CircuitCooldownMs = v
	}
	if v, ok := asInt(options["retry_max"]); ok {
		p.RetryMax = v
	}
	if v, ok := asInt(options["backoff_ms"]); ok {
		p.BackoffMs = v
	}
	return p
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
