package toolsgw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRespMaxChars = 4096

// httpGetParams is the http_get tool's request schema.
type httpGetParams struct {
	URL       string `json:"url"`
	TimeoutMs int    `json:"timeout_ms"`
}

// httpPostParams is the http_post tool's request schema.
type httpPostParams struct {
	URL         string      `json:"url"`
	TimeoutMs   int         `json:"timeout_ms"`
	Body        interface{} `json:"body"`
	ContentType string      `json:"content_type"`
}

func decodeParams(params map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func validateURL(rawURL string, hostPolicy *HostPolicy) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("url must start with http:// or https://")
	}
	if hostPolicy != nil {
		if err := hostPolicy.Check(rawURL); err != nil {
			return err
		}
	}
	return nil
}

func respMaxChars(options map[string]interface{}) int {
	if v, ok := options["resp_max_chars"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			return int(f)
		}
	}
	return defaultRespMaxChars
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// BuildHTTPGet returns the Validate/Run closures for an http_get
// invocation, bounding timeout_ms to [1, 10000] as in the original.
func BuildHTTPGet(client *http.Client, hostPolicy *HostPolicy, params, options map[string]interface{}) (validate func() error, run func(ctx context.Context) (map[string]interface{}, error), normalized map[string]interface{}) {
	var p httpGetParams
	normalized = map[string]interface{}{}

	validate = func() error {
		if err := decodeParams(params, &p); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		if err := validateURL(p.URL, hostPolicy); err != nil {
			return err
		}
		if p.TimeoutMs < 1 || p.TimeoutMs > 10000 {
			if p.TimeoutMs == 0 {
				p.TimeoutMs = 5000
			} else {
				return fmt.Errorf("timeout_ms must be between 1 and 10000")
			}
		}
		normalized["url"] = p.URL
		normalized["timeout_ms"] = p.TimeoutMs
		return nil
	}

	run = func(ctx context.Context) (map[string]interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(p.TimeoutMs)*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"status": resp.StatusCode,
			"body":   truncate(string(body), respMaxChars(options)),
		}, nil
	}

	return validate, run, normalized
}

// BuildHTTPPost returns the Validate/Run closures for an http_post
// invocation, bounding timeout_ms to [1, 15000] as in the original.
func BuildHTTPPost(client *http.Client, hostPolicy *HostPolicy, params, options map[string]interface{}) (validate func() error, run func(ctx context.Context) (map[string]interface{}, error), normalized map[string]interface{}) {
	var p httpPostParams
	normalized = map[string]interface{}{}

	validate = func() error {
		if err := decodeParams(params, &p); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		if err := validateURL(p.URL, hostPolicy); err != nil {
			return err
		}
		if p.TimeoutMs == 0 {
			p.TimeoutMs = 5000
		}
		if p.TimeoutMs < 1 || p.TimeoutMs > 15000 {
			return fmt.Errorf("timeout_ms must be between 1 and 15000")
		}
		if p.ContentType == "" {
			p.ContentType = "application/json"
		}
		normalized["url"] = p.URL
		normalized["timeout_ms"] = p.TimeoutMs
		normalized["content_type"] = p.ContentType
		return nil
	}

	run = func(ctx context.Context) (map[string]interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(p.TimeoutMs)*time.Millisecond)
		defer cancel()

		var bodyReader io.Reader
		if p.ContentType == "application/json" {
			encoded, err := json.Marshal(p.Body)
			if err != nil {
				return nil, err
			}
			bodyReader = strings.NewReader(string(encoded))
		} else if s, ok := p.Body.(string); ok {
			bodyReader = strings.NewReader(s)
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.URL, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", p.ContentType)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"status": resp.StatusCode,
			"body":   truncate(string(respBody), respMaxChars(options)),
		}, nil
	}

	return validate, run, normalized
}
