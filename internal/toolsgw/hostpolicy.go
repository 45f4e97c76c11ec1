package toolsgw

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// HostPolicy enforces an allow/deny list of hosts the http_get and
// http_post tools are permitted to reach. An empty allow list means
// "no restriction"; deny always wins over allow.
type HostPolicy struct {
	Allow map[string]struct{}
	Deny  map[string]struct{}
}

type hostPolicyFile struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// LoadHostPolicy reads an allow/deny host list from a JSON file. A
// missing file yields an unrestricted policy (allow all, deny none).
func LoadHostPolicy(path string) (*HostPolicy, error) {
	hp := &HostPolicy{Allow: map[string]struct{}{}, Deny: map[string]struct{}{}}
	if path == "" {
		return hp, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hp, nil
		}
		return nil, fmt.Errorf("load host policy: %w", err)
	}
	var pf hostPolicyFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("load host policy: decode: %w", err)
	}
	for _, h := range pf.Allow {
		hp.Allow[strings.ToLower(h)] = struct{}{}
	}
	for _, h := range pf.Deny {
		hp.Deny[strings.ToLower(h)] = struct{}{}
	}
	return hp, nil
}

// Check validates rawURL's host against the policy.
func (hp *HostPolicy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	host := strings.ToLower(u.Hostname())

	if _, denied := hp.Deny[host]; denied {
		return fmt.Errorf("host %q is denied by policy", host)
	}
	if len(hp.Allow) > 0 {
		if _, allowed := hp.Allow[host]; !allowed {
			return fmt.Errorf("host %q is not in the allow list", host)
		}
	}
	return nil
}
