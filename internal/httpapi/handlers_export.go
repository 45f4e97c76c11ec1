package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/neal-yes/rag-gateway/internal/collections"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
)

func (d Deps) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var req collections.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	resp, err := d.Importer.Import(ctx, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleImportFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, requestID, badRequest("invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, requestID, badRequest("file is required"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, requestID, badRequest("failed to read file"))
		return
	}
	if len(raw) == 0 {
		writeError(w, requestID, badRequest("empty file"))
		return
	}
	text, err := collections.DecodeUpload(raw)
	if err != nil {
		writeError(w, requestID, badRequest(err.Error()))
		return
	}

	req := collections.ImportRequest{
		Collection:       r.FormValue("collection"),
		JSONL:            text,
		ContinueOnError:  r.FormValue("continue_on_error") == "true",
		MaxErrorExamples: formInt(r, "max_error_examples", 5),
		BatchSize:        formInt(r, "batch_size", 1000),
		OnConflict:       formStringOr(r, "on_conflict", "upsert"),
	}
	resp, err := d.Importer.Import(ctx, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func formInt(r *http.Request, key string, def int) int {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func formStringOr(r *http.Request, key, def string) string {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	return v
}

func (d Deps) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var req collections.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	body, err := d.Exporter.Export(ctx, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (d Deps) handleExportStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)
	var req collections.ExportStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	taskID, err := d.Exporter.StartExport(ctx, tenant, requestID, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	go d.Exporter.Run(context.WithoutCancel(ctx), taskID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"task_id": taskID, "status": "pending"})
}

func (d Deps) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	taskID := r.URL.Query().Get("task_id")
	resp, err := d.Exporter.Status(ctx, taskID)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleExportCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	taskID := r.URL.Query().Get("task_id")
	resp, err := d.Exporter.Cancel(ctx, taskID)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleExportDownloadByTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	taskID := r.URL.Query().Get("task_id")
	path, collection, gzipped, err := d.Exporter.DownloadByTask(ctx, taskID)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	ext, media := ".jsonl", "application/x-ndjson"
	if gzipped {
		ext, media = ".jsonl.gz", "application/gzip"
	}
	w.Header().Set("Content-Type", media)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+collection+"_export_"+taskID+ext+"\"")
	http.ServeFile(w, r, path)
}

func (d Deps) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	q := r.URL.Query()
	req := collections.DownloadRequest{
		Collection:  q.Get("collection"),
		WithVectors: queryBool(q, "with_vectors", true),
		WithPayload: queryBool(q, "with_payload", true),
		Gzip:        queryBool(q, "gzip", false),
	}
	if raw := q.Get("filters"); raw != "" {
		var filters map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			writeError(w, requestID, badRequest("filters must be a valid JSON string"))
			return
		}
		req.Filters = filters
	}
	if raw := q.Get("delay_ms_per_point"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.DelayMsPerPoint = n
		}
	}

	if err := d.Exporter.StreamDownload(ctx, w, tenant, req); err != nil {
		writeError(w, requestID, err)
		return
	}
}

func queryBool(q map[string][]string, key string, def bool) bool {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return def
	}
	b, err := strconv.ParseBool(vals[0])
	if err != nil {
		return def
	}
	return b
}
