package collections

import (
	"compress/gzip"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/jobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDownload_CollectionNotFound(t *testing.T) {
	e := NewExporter(&fakeIndex{exists: false}, jobstore.NewMemoryStore(), time.Hour, 0, 0, nil)
	rec := httptest.NewRecorder()
	err := e.StreamDownload(context.Background(), rec, "acme", DownloadRequest{Collection: "docs"})
	assert.Error(t, err)
}

func TestStreamDownload_WritesNDJSONAndHeaders(t *testing.T) {
	idx := &fakeIndex{
		exists: true,
		scrollPoints: []engine.Point{
			{ID: "1", Payload: map[string]interface{}{"text": "a"}},
		},
	}
	e := NewExporter(idx, jobstore.NewMemoryStore(), time.Hour, 0, 0, nil)
	rec := httptest.NewRecorder()

	err := e.StreamDownload(context.Background(), rec, "acme", DownloadRequest{
		Collection:  "docs",
		WithPayload: true,
	})
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), `"id":"1"`)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "docs.jsonl")
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
}

func TestStreamDownload_GzipCompressesOutput(t *testing.T) {
	idx := &fakeIndex{
		exists: true,
		scrollPoints: []engine.Point{
			{ID: "1", Payload: map[string]interface{}{"text": "a"}},
		},
	}
	e := NewExporter(idx, jobstore.NewMemoryStore(), time.Hour, 0, 0, nil)
	rec := httptest.NewRecorder()

	err := e.StreamDownload(context.Background(), rec, "acme", DownloadRequest{
		Collection:  "docs",
		WithPayload: true,
		Gzip:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))

	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), `"id":"1"`)
}

func TestStreamDownload_SaturatedSemaphoreReturns429Error(t *testing.T) {
	idx := &fakeIndex{exists: true}
	e := NewExporter(idx, jobstore.NewMemoryStore(), time.Hour, 0, 1, nil)
	e.downloadSem <- struct{}{} // saturate the single slot

	rec := httptest.NewRecorder()
	err := e.StreamDownload(context.Background(), rec, "acme", DownloadRequest{Collection: "docs"})
	assert.Error(t, err)
}
