package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/neal-yes/rag-gateway/internal/ask"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
)

type askRequestBody struct {
	Query      string                 `json:"query"`
	UseRAG     bool                   `json:"use_rag"`
	TopK       int                    `json:"top_k"`
	Collection string                 `json:"collection"`
	Model      string                 `json:"model"`
	Options    map[string]interface{} `json:"options"`
	Filters    map[string]interface{} `json:"filters"`
}

func (d Deps) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	var body askRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}

	resp, err := d.Ask.Ask(ctx, tenant, requestID, ask.Request{
		Query:      body.Query,
		UseRAG:     body.UseRAG,
		TopK:       body.TopK,
		Collection: body.Collection,
		Model:      body.Model,
		Options:    body.Options,
		Filters:    body.Filters,
	})
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleAskStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	var body askRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}

	d.Ask.StreamAsk(ctx, tenant, requestID, w, ask.Request{
		Query:      body.Query,
		UseRAG:     body.UseRAG,
		TopK:       body.TopK,
		Collection: body.Collection,
		Model:      body.Model,
		Options:    body.Options,
		Filters:    body.Filters,
	})
}

func (d Deps) handlePreflight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	var body struct {
		Query      string                 `json:"query"`
		TopK       int                    `json:"top_k"`
		Collection string                 `json:"collection"`
		Filters    map[string]interface{} `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}

	resp := d.Ask.Preflight(ctx, tenant, requestID, ask.PreflightRequest{
		Query:      body.Query,
		TopK:       body.TopK,
		Collection: body.Collection,
		Filters:    body.Filters,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleDebugStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)
	ask.DebugStream(ctx, w, requestID, tenant)
}

func (d Deps) handleDebugWarmup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)
	resp := d.Ask.DebugWarmup(ctx, tenant, requestID)
	writeJSON(w, http.StatusOK, resp)
}
