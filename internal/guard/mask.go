package guard

import "strings"

// sensitiveKeys mirrors tool_executor.py's SENSITIVE_KEYS set: any map
// key matching one of these (case-insensitively) has its value masked
// before the value is echoed back in a response or a log line.
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"authorization": {},
	"cookie":        {},
	"api_key":       {},
	"apikey":        {},
	"password":      {},
}

func isSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// maskValue masks a scalar: short values become "****", longer ones
// keep a two-character prefix/suffix, matching the original's
// s[:2]+"***"+s[-2:] scheme.
func maskValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "***" + s[len(s)-2:]
}

// maskMap recursively masks sensitive keys in a dynamic JSON-shaped
// map/slice tree, leaving everything else untouched.
func maskMap(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				out[k] = maskValue(val)
			} else {
				out[k] = maskMap(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = maskMap(val)
		}
		return out
	default:
		return v
	}
}
