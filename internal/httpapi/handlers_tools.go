package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/neal-yes/rag-gateway/internal/reqctx"
	"github.com/neal-yes/rag-gateway/internal/toolsgw"
)

type toolInvokeBody struct {
	ToolType string                 `json:"tool_type"`
	ToolName string                 `json:"tool_name"`
	Params   map[string]interface{} `json:"params"`
	Options  map[string]interface{} `json:"options"`
}

func (d Deps) handleToolsInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	var body toolInvokeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}

	resp, err := d.Tools.Invoke(ctx, requestID, toolsgw.InvokeRequest{
		Tenant:   tenant,
		ToolType: body.ToolType,
		ToolName: body.ToolName,
		Params:   body.Params,
		Options:  body.Options,
	})
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d Deps) handleToolsPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqctx.RequestID(ctx)
	tenant := reqctx.Tenant(ctx)

	var body struct {
		ToolType string                 `json:"tool_type"`
		ToolName string                 `json:"tool_name"`
		Options  map[string]interface{} `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, requestID, badRequest("invalid request body"))
		return
	}

	layers := d.Tools.Preview(tenant, body.ToolType, body.ToolName, body.Options)
	writeJSON(w, http.StatusOK, layers)
}
