package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint computes the stable per-(tenant,tool,params) key the
// rest of the guard stack is keyed on, matching tool_executor.py's
// _stable_key: a sha256 over the sorted-key JSON encoding of
// {"params":…, "normalized":…}, prefixed with tenant/type/name.
func Fingerprint(tenant, toolType, toolName string, params, normalized map[string]interface{}) string {
	payload := map[string]interface{}{
		"params":     params,
		"normalized": normalized,
	}
	digest := sha256.Sum256([]byte(stableJSON(payload)))
	return fmt.Sprintf("%s:%s:%s:%s",
		tenant,
		strings.ToLower(toolType),
		strings.ToLower(toolName),
		hex.EncodeToString(digest[:]),
	)
}

// stableJSON encodes v with map keys sorted and no extraneous
// whitespace, matching Python's json.dumps(sort_keys=True,
// separators=(",", ":")).
func stableJSON(v interface{}) string {
	var b strings.Builder
	encodeStable(&b, v)
	return b.String()
}

func encodeStable(b *strings.Builder, v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			encodeStable(b, t[k])
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeStable(b, e)
		}
		b.WriteByte(']')
	default:
		encoded, _ := json.Marshal(t)
		b.Write(encoded)
	}
}
