package collections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/jobstore"
)

const scrollPageSize = 1000

// Exporter owns synchronous export, background export jobs, and the
// direct streaming download path. A single instance is shared across
// requests; its semaphores bound how many of each kind run at once.
type Exporter struct {
	Index     engine.VectorIndex
	Store     jobstore.Store
	TTL       time.Duration
	Logger    *slog.Logger

	// Tracer, when set, enables OTel spans around background export
	// job runs. Left nil, Run executes with a no-op tracer.
	Tracer trace.Tracer

	exportSem   chan struct{}
	downloadSem chan struct{}
	cleanerOnce sync.Once
}

// NewExporter wires an Exporter with the given concurrency caps.
// maxExportConcurrency/maxDownloadConcurrency of 0 disables the cap.
func NewExporter(index engine.VectorIndex, store jobstore.Store, ttl time.Duration, maxExportConcurrency, maxDownloadConcurrency int, logger *slog.Logger) *Exporter {
	e := &Exporter{Index: index, Store: store, TTL: ttl, Logger: logger}
	if maxExportConcurrency > 0 {
		e.exportSem = make(chan struct{}, maxExportConcurrency)
	}
	if maxDownloadConcurrency > 0 {
		e.downloadSem = make(chan struct{}, maxDownloadConcurrency)
	}
	return e
}

// Export runs a synchronous scroll-and-serialize export, returning the
// full NDJSON body. Intended for small collections; large ones should
// use StartExport instead.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (string, error) {
	exists, err := e.Index.CollectionExists(ctx, req.Collection)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}

	var buf bytes.Buffer
	var offset *string
	for {
		points, next, err := e.Index.Scroll(ctx, req.Collection, req.Filters, scrollPageSize, offset, req.WithVectors)
		if err != nil {
			return "", fmt.Errorf("export: scroll: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			line, _ := json.Marshal(exportLine(p, req.WithVectors, req.WithPayload))
			buf.Write(line)
			buf.WriteByte('\n')
		}
		if next == nil {
			break
		}
		offset = next
	}
	return buf.String(), nil
}

func acquire(sem chan struct{}) bool {
	if sem == nil {
		return true
	}
	select {
	case sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func release(sem chan struct{}) {
	if sem == nil {
		return
	}
	<-sem
}
