package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/neal-yes/rag-gateway/internal/collections"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
)

func (d Deps) handleListCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	names, err := d.Admin.List(ctx)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": names})
}

func (d Deps) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	name := chi.URLParam(r, "name")
	info, err := d.Admin.Info(ctx, name)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (d Deps) handleEnsureCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var req collections.EnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	resp, err := d.Admin.Ensure(ctx, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	name := chi.URLParam(r, "name")
	resp, err := d.Admin.Delete(ctx, name)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleClearCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	name := chi.URLParam(r, "name")
	resp, err := d.Admin.Clear(ctx, name)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleDeletePointsByIDs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var body struct {
		Collection string   `json:"collection"`
		IDs        []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	resp, err := d.Admin.DeletePointsByIDs(ctx, body.Collection, body.IDs)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleDeletePointsByFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var body struct {
		Collection string                 `json:"collection"`
		Filters    map[string]interface{} `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	resp, err := d.Admin.DeletePointsByFilter(ctx, body.Collection, body.Filters)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleUpsertTexts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	var req collections.UpsertTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}
	resp, err := d.Admin.UpsertTexts(ctx, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
