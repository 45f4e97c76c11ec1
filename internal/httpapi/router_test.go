package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neal-yes/rag-gateway/internal/ask"
	"github.com/neal-yes/rag-gateway/internal/collections"
	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/jobstore"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
	"github.com/neal-yes/rag-gateway/internal/toolsgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct{ response string }

func (f *fakeGenerator) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"response": f.response}, nil
}
func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt, model string, options map[string]interface{}) (<-chan engine.StreamChunk, error) {
	ch := make(chan engine.StreamChunk, 1)
	ch <- engine.StreamChunk{Text: f.response, Done: true}
	close(ch)
	return ch, nil
}

type fakeIndex struct{ names []string }

func (f *fakeIndex) CollectionExists(ctx context.Context, name string) (bool, error) { return true, nil }
func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	return nil
}
func (f *fakeIndex) ListCollections(ctx context.Context) ([]string, error) { return f.names, nil }
func (f *fakeIndex) DropCollection(ctx context.Context, name string) (bool, error) {
	return true, nil
}
func (f *fakeIndex) ClearCollection(ctx context.Context, name string) error { return nil }
func (f *fakeIndex) UpsertVectors(ctx context.Context, name string, vectors [][]float64, payloads []map[string]interface{}, ids []string) ([]string, error) {
	return ids, nil
}
func (f *fakeIndex) SearchVectors(ctx context.Context, name string, query []float64, topK int, filters map[string]interface{}) ([]engine.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeIndex) Scroll(ctx context.Context, name string, filters map[string]interface{}, limit int, offset *string, withVectors bool) ([]engine.Point, *string, error) {
	return nil, nil, nil
}
func (f *fakeIndex) DeletePointsByIDs(ctx context.Context, name string, ids []string) (int, error) {
	return len(ids), nil
}
func (f *fakeIndex) DeletePointsByFilter(ctx context.Context, name string, filters map[string]interface{}) (int, error) {
	return 1, nil
}
func (f *fakeIndex) Count(ctx context.Context, name string, filters map[string]interface{}, exact bool) (int, error) {
	return 0, nil
}
func (f *fakeIndex) Retrieve(ctx context.Context, name string, ids []string, withVectors, withPayload bool) ([]engine.Point, error) {
	return nil, nil
}
func (f *fakeIndex) GetCollectionInfo(ctx context.Context, name string) (map[string]interface{}, error) {
	return nil, nil
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	idx := &fakeIndex{names: []string{"docs"}}
	hp, err := toolsgw.LoadHostPolicy("")
	require.NoError(t, err)

	return Deps{
		ReqCtx: reqctx.Config{},
		Ask: &ask.Pipeline{
			Generator: &fakeGenerator{response: "hello"},
			Config:    ask.Config{DefaultCollection: "docs", Model: "llama3"},
		},
		Admin:    &collections.Admin{Index: idx},
		Importer: &collections.Importer{Index: idx},
		Exporter: collections.NewExporter(idx, jobstore.NewMemoryStore(), time.Hour, 2, 2, nil),
		Tools: &toolsgw.Gateway{
			Policies:   toolsgw.NewPolicyStore(""),
			HostPolicy: hp,
			Guard:      nil,
			Client:     http.DefaultClient,
		},
	}
}

func TestRouter_Ask_PlainGeneration(t *testing.T) {
	r := NewRouter(testDeps(t))
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"query":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", body)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp["response"])
}

func TestRouter_Collections_List(t *testing.T) {
	r := NewRouter(testDeps(t))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cols := resp["collections"].([]interface{})
	assert.Equal(t, "docs", cols[0])
}

func TestRouter_EnsureCollection(t *testing.T) {
	r := NewRouter(testDeps(t))
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"name":"docs","vector_size":768}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections/ensure", body)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Import(t *testing.T) {
	r := NewRouter(testDeps(t))
	rec := httptest.NewRecorder()
	payload := `{"collection":"docs","jsonl":"{\"vector\":[0.1]}"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections/import", strings.NewReader(payload))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NotFoundCollectionMapsTo404(t *testing.T) {
	deps := testDeps(t)
	deps.Admin = &collections.Admin{Index: &notFoundIndex{}}
	r := NewRouter(deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/missing", nil)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type notFoundIndex struct{ fakeIndex }

func (n *notFoundIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	return false, nil
}
