// Package httpapi wires the ask pipeline, collection administration,
// and tools gateway into a chi router with the shared request-context
// middleware and a consistent JSON error responder.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neal-yes/rag-gateway/internal/ask"
	"github.com/neal-yes/rag-gateway/internal/collections"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
	"github.com/neal-yes/rag-gateway/internal/toolsgw"
)

// Deps bundles the collaborators the router dispatches to. Each field
// is a thin, already-constructed facade — the router itself holds no
// business logic.
type Deps struct {
	ReqCtx      reqctx.Config
	Ask         *ask.Pipeline
	Admin       *collections.Admin
	Importer    *collections.Importer
	Exporter    *collections.Exporter
	Tools       *toolsgw.Gateway
	RequestTimeout time.Duration
}

// NewRouter builds the full HTTP surface: collection admin, ask/RAG,
// tools invocation, debug endpoints, and export jobs. Metrics are
// recorded internally (internal/metrics) but not exposed as a scrape
// route, and there is no health-probe route — both are spec Non-goals.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}
	r.Use(reqctx.Middleware(d.ReqCtx))

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/ask", d.handleAsk)
		api.Post("/ask/stream", d.handleAskStream)
		api.Post("/rag/preflight", d.handlePreflight)

		api.Get("/debug/stream", d.handleDebugStream)
		api.Get("/debug/warmup", d.handleDebugWarmup)

		api.Post("/tools/invoke", d.handleToolsInvoke)
		api.Post("/tools/preview", d.handleToolsPreview)

		api.Route("/collections", func(c chi.Router) {
			c.Get("/", d.handleListCollections)
			c.Post("/ensure", d.handleEnsureCollection)
			c.Get("/{name}", d.handleCollectionInfo)
			c.Delete("/{name}", d.handleDeleteCollection)
			c.Post("/{name}/clear", d.handleClearCollection)
			c.Post("/points/delete_by_ids", d.handleDeletePointsByIDs)
			c.Post("/points/delete_by_filter", d.handleDeletePointsByFilter)
			c.Post("/upsert_texts", d.handleUpsertTexts)

			c.Post("/import", d.handleImport)
			c.Post("/import_file", d.handleImportFile)
			c.Post("/export", d.handleExport)
			c.Post("/export/start", d.handleExportStart)
			c.Get("/export/status", d.handleExportStatus)
			c.Get("/export/download_by_task", d.handleExportDownloadByTask)
			c.Delete("/export/task", d.handleExportCancel)
			c.Get("/export/download", d.handleExportDownload)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a gwerrors.GatewayError (or any other error, as
// Internal) to a JSON error body {error: <kind>, message, request_id}
// and the corresponding HTTP status.
func writeError(w http.ResponseWriter, requestID string, err error) {
	kind := gwerrors.Internal
	message := err.Error()
	if ge, ok := err.(*gwerrors.GatewayError); ok {
		kind = ge.Kind
		message = ge.Message
	}
	w.Header().Set("X-Request-Id", requestID)
	writeJSON(w, gwerrors.HTTPStatus(kind), map[string]interface{}{
		"error":      string(kind),
		"message":    message,
		"request_id": requestID,
	})
}
