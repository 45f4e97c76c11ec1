// Package collections implements collection administration, bulk
// import, and export (synchronous, background-job, and direct
// streaming download) over the vector index.
package collections

import "github.com/neal-yes/rag-gateway/internal/engine"

// EnsureRequest creates a collection with a fixed vector size/distance.
type EnsureRequest struct {
	Name       string `json:"name"`
	VectorSize int    `json:"vector_size"`
	Distance   string `json:"distance"`
}

// UpsertTextsRequest embeds texts and writes them as points, building
// each point's payload as {"text": t, ...metadata}.
type UpsertTextsRequest struct {
	Collection string                   `json:"collection"`
	Texts      []string                 `json:"texts"`
	Metadatas  []map[string]interface{} `json:"metadatas"`
	IDs        []string                 `json:"ids"`
	Model      string                   `json:"model"`
}

// ExportRequest selects which points to export.
type ExportRequest struct {
	Collection  string                 `json:"collection"`
	Filters     map[string]interface{} `json:"filters"`
	WithVectors bool                   `json:"with_vectors"`
	WithPayload bool                   `json:"with_payload"`
}

// ExportStartRequest is ExportRequest plus the background-job-only
// throttling/compression knobs.
type ExportStartRequest struct {
	ExportRequest
	DelayMsPerPoint int  `json:"delay_ms_per_point"`
	WithGzip        bool `json:"with_gzip"`
}

// ImportRequest is one bulk-import call, whether the JSONL text came
// from a JSON body field or a multipart file upload.
type ImportRequest struct {
	Collection       string `json:"collection"`
	JSONL            string `json:"jsonl"`
	ContinueOnError  bool   `json:"continue_on_error"`
	MaxErrorExamples int    `json:"max_error_examples"`
	BatchSize        int    `json:"batch_size"`
	OnConflict       string `json:"on_conflict"` // "upsert" | "skip"
}

// ImportResult is the response to both /import and /import_file.
type ImportResult struct {
	Collection       string                   `json:"collection"`
	Imported         int                      `json:"imported"`
	TotalLines       int                      `json:"total_lines"`
	Skipped          int                      `json:"skipped"`
	ConflictsSkipped int                      `json:"conflicts_skipped"`
	Batches          int                      `json:"batches"`
	Errors           []map[string]interface{} `json:"errors"`
}

// importRow is one parsed JSONL import line.
type importRow struct {
	id      string
	vector  []float64
	payload map[string]interface{}
}

func exportLine(p engine.Point, withVectors, withPayload bool) map[string]interface{} {
	obj := map[string]interface{}{"id": p.ID}
	if withVectors {
		obj["vector"] = p.Vector
	}
	if withPayload {
		obj["payload"] = p.Payload
	}
	return obj
}
