package collections

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/metrics"
)

// Importer bulk-loads NDJSON points into the vector index.
type Importer struct {
	Index engine.VectorIndex
}

// gzipMagic is the two leading bytes of a gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// DecodeUpload gunzips raw if it carries the gzip magic header,
// otherwise decodes it as UTF-8 text — the same auto-detect the
// original's /import_file endpoint applies to uploaded bytes.
func DecodeUpload(raw []byte) (string, error) {
	if len(raw) >= 2 && bytes.Equal(raw[:2], gzipMagic) {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("failed to gunzip: %w", err)
		}
		defer gr.Close()
		decoded, err := io.ReadAll(gr)
		if err != nil {
			return "", fmt.Errorf("failed to gunzip: %w", err)
		}
		return string(decoded), nil
	}
	return string(raw), nil
}

// Import parses req.JSONL, validates each line's vector against the
// collection's declared dimension, and writes valid points in batches
// of req.BatchSize, honoring req.OnConflict.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	exists, err := im.Index.CollectionExists(ctx, req.Collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}

	info, err := im.Index.GetCollectionInfo(ctx, req.Collection)
	if err != nil {
		return nil, err
	}
	expectedDim, _ := engine.ExtractVectorSize(info)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	onConflict := strings.ToLower(req.OnConflict)
	if onConflict == "" {
		onConflict = "upsert"
	}
	maxErrorExamples := req.MaxErrorExamples
	if maxErrorExamples == 0 {
		maxErrorExamples = 5
	}
	if maxErrorExamples < 0 {
		maxErrorExamples = 0
	}

	lines := splitNonEmptyLines(req.JSONL)
	rows := make([]importRow, 0, len(lines))
	var errs []map[string]interface{}

	for idx, ln := range lines {
		row, parseErr := parseImportLine(ln, expectedDim)
		if parseErr != nil {
			if !req.ContinueOnError {
				return nil, gwerrors.New(gwerrors.BadRequest, fmt.Sprintf("invalid jsonl line at %d: %v", idx+1, parseErr), parseErr)
			}
			if len(errs) < maxErrorExamples {
				errs = append(errs, map[string]interface{}{
					"line_no": idx + 1,
					"error":   parseErr.Error(),
					"line":    truncateLine(ln, 500),
				})
			}
			metrics.ImportSkippedTotal.WithLabelValues(req.Collection, "error").Inc()
			continue
		}
		rows = append(rows, row)
	}

	t0 := time.Now()
	imported, batches, conflictsSkipped, err := im.writeBatches(ctx, req.Collection, rows, batchSize, onConflict)
	metrics.ImportSeconds.WithLabelValues(req.Collection).Observe(time.Since(t0).Seconds())
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Collection:       req.Collection,
		Imported:         imported,
		TotalLines:       len(lines),
		Skipped:          (len(lines) - len(rows)) + conflictsSkipped,
		ConflictsSkipped: conflictsSkipped,
		Batches:          batches,
		Errors:           errs,
	}, nil
}

func (im *Importer) writeBatches(ctx context.Context, collection string, rows []importRow, batchSize int, onConflict string) (imported, batches, conflictsSkipped int, err error) {
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		sub := rows[i:end]

		if onConflict == "skip" {
			sub, conflictsSkipped, err = im.filterConflicts(ctx, collection, sub, conflictsSkipped)
			if err != nil {
				return imported, batches, conflictsSkipped, err
			}
		}
		if len(sub) == 0 {
			continue
		}

		vectors := make([][]float64, len(sub))
		payloads := make([]map[string]interface{}, len(sub))
		ids := make([]string, len(sub))
		for j, r := range sub {
			vectors[j] = r.vector
			payloads[j] = r.payload
			ids[j] = r.id
		}

		if _, err := im.Index.UpsertVectors(ctx, collection, vectors, payloads, ids); err != nil {
			return imported, batches, conflictsSkipped, fmt.Errorf("import: upsert batch: %w", err)
		}
		batches++
		imported += len(sub)
		metrics.ImportBatchesTotal.WithLabelValues(collection).Inc()
		metrics.ImportRowsTotal.WithLabelValues(collection).Add(float64(len(sub)))
	}
	return imported, batches, conflictsSkipped, nil
}

// filterConflicts drops rows whose explicit ID already exists in the
// collection, matching the original's retrieve-then-filter check —
// rows without an explicit ID are never considered conflicts.
func (im *Importer) filterConflicts(ctx context.Context, collection string, rows []importRow, skippedSoFar int) ([]importRow, int, error) {
	var checkIDs []string
	for _, r := range rows {
		if r.id != "" {
			checkIDs = append(checkIDs, r.id)
		}
	}
	existing := map[string]struct{}{}
	if len(checkIDs) > 0 {
		points, err := im.Index.Retrieve(ctx, collection, checkIDs, false, false)
		if err == nil {
			for _, p := range points {
				existing[p.ID] = struct{}{}
			}
		}
	}

	kept := make([]importRow, 0, len(rows))
	skipped := skippedSoFar
	for _, r := range rows {
		if r.id != "" {
			if _, dup := existing[r.id]; dup {
				skipped++
				metrics.ImportSkippedTotal.WithLabelValues(collection, "conflict").Inc()
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, skipped, nil
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}

func parseImportLine(ln string, expectedDim int) (importRow, error) {
	var obj struct {
		ID      interface{}            `json:"id"`
		Vector  []float64              `json:"vector"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(ln), &obj); err != nil {
		return importRow{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if obj.Vector == nil {
		return importRow{}, fmt.Errorf("vector must be a list of floats")
	}
	if expectedDim > 0 && len(obj.Vector) != expectedDim {
		return importRow{}, fmt.Errorf("vector dimension mismatch, expected %d, got %d", expectedDim, len(obj.Vector))
	}
	id := ""
	if obj.ID != nil {
		id = fmt.Sprintf("%v", obj.ID)
	}
	return importRow{id: id, vector: obj.Vector, payload: obj.Payload}, nil
}

func truncateLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
