// Package toolsgw is the guarded tool invocation facade: it merges
// per-tenant/per-tool policy layers, validates and normalizes the two
// built-in tool schemas (http_get, http_post), and runs the resulting
// call through the shared guard stack.
package toolsgw

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// policyFile is the on-disk shape of the tool policy document.
type policyFile struct {
	Default *optionsNode          `json:"default"`
	Tenants map[string]tenantNode `json:"tenants"`
}

type optionsNode struct {
	Options map[string]interface{} `json:"options"`
}

type tenantNode struct {
	Default *optionsNode         `json:"default"`
	Options map[string]interface{} `json:"options"`
	Tools   map[string]toolTypeNode `json:"tools"`
}

type toolTypeNode struct {
	Options map[string]interface{} `json:"options"`
	Names   map[string]optionsNode `json:"names"`
}

// PolicyStore loads the tool policy file with a short TTL cache, so a
// file edit takes effect within a few seconds without a restart.
type PolicyStore struct {
	mu       sync.Mutex
	path     string
	ttl      time.Duration
	loadedAt time.Time
	data     policyFile
}

// NewPolicyStore builds a store reading from path, matching the
// original's 15-second policy cache TTL.
func NewPolicyStore(path string) *PolicyStore {
	return &PolicyStore{path: path, ttl: 15 * time.Second}
}

func (s *PolicyStore) load(force bool) policyFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && time.Since(s.loadedAt) < s.ttl {
		return s.data
	}

	s.loadedAt = time.Now()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		// A missing or unreadable policy file is not fatal — callers
		// fall back to request-supplied options only, matching the
		// original's silent-failure _load_policies.
		s.data = policyFile{}
		return s.data
	}

	var pf policyFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		s.data = policyFile{}
		return s.data
	}
	s.data = pf
	return s.data
}

// Layers is the full breakdown of a policy merge, returned by Preview
// so a caller can see exactly where each option value came from.
type Layers struct {
	Global  map[string]interface{} `json:"global"`
	Tenant  map[string]interface{} `json:"tenant"`
	Type    map[string]interface{} `json:"type"`
	Name    map[string]interface{} `json:"name"`
	Request map[string]interface{} `json:"request"`
	Merged  map[string]interface{} `json:"merged"`
}

// Resolve merges the five policy layers in order: global default,
// tenant default, per-tool-type default, per-tool-name default, and
// finally the caller's per-request options — each layer's keys
// overriding the one before it.
func (s *PolicyStore) Resolve(tenant, toolType, toolName string, requestOptions map[string]interface{}) Layers {
	pf := s.load(false)

	global := map[string]interface{}{}
	if pf.Default != nil {
		global = pf.Default.Options
	}

	tenantOpts := map[string]interface{}{}
	var typeOpts map[string]interface{}
	var nameOpts map[string]interface{}
	if tn, ok := pf.Tenants[tenant]; ok {
		if tn.Default != nil {
			tenantOpts = tn.Default.Options
		} else if tn.Options != nil {
			tenantOpts = tn.Options
		}
		if tt, ok := tn.Tools[toolType]; ok {
			typeOpts = tt.Options
			if n, ok := tt.Names[toolName]; ok {
				nameOpts = n.Options
			}
		}
	}

	merged := mergeOptions(map[string]interface{}{}, global)
	merged = mergeOptions(merged, tenantOpts)
	merged = mergeOptions(merged, typeOpts)
	merged = mergeOptions(merged, nameOpts)
	merged = mergeOptions(merged, requestOptions)

	return Layers{
		Global:  global,
		Tenant:  tenantOpts,
		Type:    typeOpts,
		Name:    nameOpts,
		Request: requestOptions,
		Merged:  merged,
	}
}

// mergeOptions is a shallow dict update: override's keys win.
func mergeOptions(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
