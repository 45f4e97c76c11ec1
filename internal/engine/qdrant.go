package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	internalhttp "github.com/neal-yes/rag-gateway/pkg/internal/http"
)

// Point is a single vector-index record.
type Point struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Vector  []float64              `json:"vector,omitempty"`
}

// ScoredPoint is a Point returned from a similarity search.
type ScoredPoint struct {
	Point
	Score float64 `json:"score"`
}

// VectorIndex is the set of collection and point operations the ask
// pipeline and the import/export engine need from the vector store.
type VectorIndex interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// EnsureCollection creates the collection if absent. If it exists
	// with a different vector size, it is dropped and recreated.
	EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error
	ListCollections(ctx context.Context) ([]string, error)
	// DropCollection is idempotent: dropping a collection that does
	// not exist reports deleted=false, not an error.
	DropCollection(ctx context.Context, name string) (deleted bool, err error)
	ClearCollection(ctx context.Context, name string) error
	UpsertVectors(ctx context.Context, name string, vectors [][]float64, payloads []map[string]interface{}, ids []string) ([]string, error)
	SearchVectors(ctx context.Context, name string, query []float64, topK int, filters map[string]interface{}) ([]ScoredPoint, error)
	Scroll(ctx context.Context, name string, filters map[string]interface{}, limit int, offset *string, withVectors bool) ([]Point, *string, error)
	DeletePointsByIDs(ctx context.Context, name string, ids []string) (int, error)
	DeletePointsByFilter(ctx context.Context, name string, filters map[string]interface{}) (int, error)
	Count(ctx context.Context, name string, filters map[string]interface{}, exact bool) (int, error)
	Retrieve(ctx context.Context, name string, ids []string, withVectors, withPayload bool) ([]Point, error)
	GetCollectionInfo(ctx context.Context, name string) (map[string]interface{}, error)
}

// Qdrant implements VectorIndex against a Qdrant REST endpoint. A
// single client is cached for the lifetime of the adapter — unlike
// the original's per-call client construction, connection reuse is
// mandatory here.
type Qdrant struct {
	client *internalhttp.Client
}

// NewQdrant builds a Qdrant adapter against baseURL (e.g.
// http://localhost:6333).
func NewQdrant(baseURL string) *Qdrant {
	return &Qdrant{client: internalhttp.NewClient(internalhttp.Config{BaseURL: baseURL})}
}

func (q *Qdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := q.client.Get(ctx, "/collections/"+name)
	if err != nil {
		return false, fmt.Errorf("qdrant collection_exists: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("qdrant collection_exists: http %d", resp.StatusCode)
	}
	return true, nil
}

// EnsureCollection matches the original's idempotent create, extended
// (per SPEC_FULL.md) to drop and recreate on a vector-size mismatch
// rather than leaving a stale, incompatible collection in place.
func (q *Qdrant) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	exists, err := q.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		info, err := q.GetCollectionInfo(ctx, name)
		if err != nil {
			return err
		}
		existingSize, ok := extractVectorSize(info)
		if !ok || existingSize == vectorSize {
			return nil
		}
		if _, err := q.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant ensure_collection: drop stale collection: %w", err)
		}
	}

	if distance == "" {
		distance = "Cosine"
	}
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPut,
		Path:   "/collections/" + name,
		Body: map[string]interface{}{
			"vectors": map[string]interface{}{
				"size":     vectorSize,
				"distance": distance,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant ensure_collection: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("qdrant ensure_collection: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	return nil
}

func (q *Qdrant) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := q.client.GetJSON(ctx, "/collections", &out); err != nil {
		return nil, fmt.Errorf("qdrant list_collections: %w", err)
	}
	names := make([]string, len(out.Result.Collections))
	for i, c := range out.Result.Collections {
		names[i] = c.Name
	}
	return names, nil
}

func (q *Qdrant) DropCollection(ctx context.Context, name string) (bool, error) {
	resp, err := q.client.Do(ctx, internalhttp.Request{Method: http.MethodDelete, Path: "/collections/" + name})
	if err != nil {
		return false, fmt.Errorf("qdrant drop_collection: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("qdrant drop_collection: http %d", resp.StatusCode)
	}
	return true, nil
}

// ClearCollection removes every point but keeps the collection,
// scrolling in pages the same way the original does rather than
// dropping and recreating (which would lose the vector config).
func (q *Qdrant) ClearCollection(ctx context.Context, name string) error {
	var offset *string
	for {
		points, next, err := q.Scroll(ctx, name, nil, 1000, offset, false)
		if err != nil {
			return fmt.Errorf("qdrant clear_collection: scroll: %w", err)
		}
		if len(points) > 0 {
			ids := make([]string, len(points))
			for i, p := range points {
				ids[i] = p.ID
			}
			if _, err := q.DeletePointsByIDs(ctx, name, ids); err != nil {
				return fmt.Errorf("qdrant clear_collection: delete page: %w", err)
			}
		}
		if next == nil {
			return nil
		}
		offset = next
	}
}

func (q *Qdrant) UpsertVectors(ctx context.Context, name string, vectors [][]float64, payloads []map[string]interface{}, ids []string) ([]string, error) {
	points := make([]map[string]interface{}, len(vectors))
	outIDs := make([]string, len(vectors))
	for i, v := range vectors {
		id := ""
		if i < len(ids) && ids[i] != "" {
			id = ids[i]
		} else {
			id = newPointID()
		}
		outIDs[i] = id
		p := map[string]interface{}{"id": id, "vector": v}
		if i < len(payloads) && payloads[i] != nil {
			p["payload"] = payloads[i]
		}
		points[i] = p
	}

	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPut,
		Path:   "/collections/" + name + "/points",
		Query:  map[string]string{"wait": "true"},
		Body:   map[string]interface{}{"points": points},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant upsert_vectors: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("qdrant upsert_vectors: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	return outIDs, nil
}

func (q *Qdrant) SearchVectors(ctx context.Context, name string, query []float64, topK int, filters map[string]interface{}) ([]ScoredPoint, error) {
	body := map[string]interface{}{
		"vector":       query,
		"limit":        topK,
		"with_payload": true,
	}
	if flt := buildFilter(filters); flt != nil {
		body["filter"] = flt
	}

	var out struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points/search",
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search_vectors: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("qdrant search_vectors: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("qdrant search_vectors: decode: %w", err)
	}

	scored := make([]ScoredPoint, len(out.Result))
	for i, r := range out.Result {
		scored[i] = ScoredPoint{Point: Point{ID: r.ID, Payload: r.Payload}, Score: r.Score}
	}
	return scored, nil
}

func (q *Qdrant) Scroll(ctx context.Context, name string, filters map[string]interface{}, limit int, offset *string, withVectors bool) ([]Point, *string, error) {
	body := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  withVectors,
	}
	if offset != nil {
		body["offset"] = *offset
	}
	if flt := buildFilter(filters); flt != nil {
		body["filter"] = flt
	}

	var out struct {
		Result struct {
			Points []struct {
				ID      string                 `json:"id"`
				Payload map[string]interface{} `json:"payload"`
				Vector  []float64               `json:"vector"`
			} `json:"points"`
			NextPageOffset interface{} `json:"next_page_offset"`
		} `json:"result"`
	}
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points/scroll",
		Body:   body,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant scroll: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("qdrant scroll: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, nil, fmt.Errorf("qdrant scroll: decode: %w", err)
	}

	points := make([]Point, len(out.Result.Points))
	for i, p := range out.Result.Points {
		points[i] = Point{ID: p.ID, Payload: p.Payload, Vector: p.Vector}
	}

	var next *string
	if out.Result.NextPageOffset != nil {
		s := fmt.Sprintf("%v", out.Result.NextPageOffset)
		next = &s
	}
	return points, next, nil
}

func (q *Qdrant) DeletePointsByIDs(ctx context.Context, name string, ids []string) (int, error) {
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points/delete",
		Query:  map[string]string{"wait": "true"},
		Body:   map[string]interface{}{"points": ids},
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete_points_by_ids: %w", err)
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("qdrant delete_points_by_ids: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	return len(ids), nil
}

// DeletePointsByFilter matches the original's exact-count-then-delete
// pattern: the affected count is taken from a Count call executed
// before the delete, since Qdrant's delete-by-filter response doesn't
// report how many points it removed.
func (q *Qdrant) DeletePointsByFilter(ctx context.Context, name string, filters map[string]interface{}) (int, error) {
	count, err := q.Count(ctx, name, filters, true)
	if err != nil {
		return 0, fmt.Errorf("qdrant delete_points_by_filter: count: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points/delete",
		Query:  map[string]string{"wait": "true"},
		Body:   map[string]interface{}{"filter": buildFilter(filters)},
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete_points_by_filter: %w", err)
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("qdrant delete_points_by_filter: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	return count, nil
}

func (q *Qdrant) Count(ctx context.Context, name string, filters map[string]interface{}, exact bool) (int, error) {
	body := map[string]interface{}{"exact": exact}
	if flt := buildFilter(filters); flt != nil {
		body["filter"] = flt
	}

	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points/count",
		Body:   body,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("qdrant count: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, fmt.Errorf("qdrant count: decode: %w", err)
	}
	return out.Result.Count, nil
}

func (q *Qdrant) Retrieve(ctx context.Context, name string, ids []string, withVectors, withPayload bool) ([]Point, error) {
	var out struct {
		Result []struct {
			ID      string                 `json:"id"`
			Payload map[string]interface{} `json:"payload"`
			Vector  []float64               `json:"vector"`
		} `json:"result"`
	}
	resp, err := q.client.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + name + "/points",
		Body: map[string]interface{}{
			"ids":          ids,
			"with_payload": withPayload,
			"with_vector":  withVectors,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant retrieve: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("qdrant retrieve: http %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("qdrant retrieve: decode: %w", err)
	}

	points := make([]Point, len(out.Result))
	for i, p := range out.Result {
		points[i] = Point{ID: p.ID, Payload: p.Payload, Vector: p.Vector}
	}
	return points, nil
}

// GetCollectionInfo returns the raw decoded "result" object so that
// dimension-probing code (ask pipeline, import validation) can apply
// the same multi-shape extraction the original does.
func (q *Qdrant) GetCollectionInfo(ctx context.Context, name string) (map[string]interface{}, error) {
	var out struct {
		Result map[string]interface{} `json:"result"`
	}
	if err := q.client.GetJSON(ctx, "/collections/"+name, &out); err != nil {
		return nil, fmt.Errorf("qdrant get_collection_info: %w", err)
	}
	return out.Result, nil
}

// ExtractVectorSize is the exported form of extractVectorSize, used by
// the ask pipeline to give a friendly dimension-mismatch message
// before issuing a search Qdrant would otherwise reject with a 400.
func ExtractVectorSize(info map[string]interface{}) (int, bool) {
	return extractVectorSize(info)
}

// extractVectorSize probes the four nested shapes a collection-info
// payload's vector size can appear in, matching the original's
// config.params.vectors.size / params.vectors.size / params.size /
// vectors.size fallback chain.
func extractVectorSize(info map[string]interface{}) (int, bool) {
	if v, ok := dig(info, "config", "params", "vectors", "size"); ok {
		return toInt(v)
	}
	if v, ok := dig(info, "params", "vectors", "size"); ok {
		return toInt(v)
	}
	if v, ok := dig(info, "params", "size"); ok {
		return toInt(v)
	}
	if v, ok := dig(info, "vectors", "size"); ok {
		return toInt(v)
	}
	return 0, false
}

func dig(m map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = m
	for _, key := range path {
		asMap, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = asMap[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// buildFilter builds a simple AND-of-equality filter, matching the
// original's _build_filter.
func buildFilter(filters map[string]interface{}) map[string]interface{} {
	if len(filters) == 0 {
		return nil
	}
	must := make([]map[string]interface{}, 0, len(filters))
	for k, v := range filters {
		must = append(must, map[string]interface{}{
			"key":   k,
			"match": map[string]interface{}{"value": v},
		})
	}
	return map[string]interface{}{"must": must}
}
