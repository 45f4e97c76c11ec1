package collections

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/jobstore"
	"github.com/neal-yes/rag-gateway/internal/metrics"
	"github.com/neal-yes/rag-gateway/pkg/telemetry"
)

// StartExport creates a pending job and returns its task ID
// immediately; it does not start the export itself. The caller
// launches it by invoking Run on a goroutine (e.g.
// `go exporter.Run(context.Background(), taskID)`).
func (e *Exporter) StartExport(ctx context.Context, tenant, traceID string, req ExportStartRequest) (string, error) {
	exists, err := e.Index.CollectionExists(ctx, req.Collection)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}

	taskID := uuid.NewString()
	if tenant == "" {
		tenant = "_anon_"
	}
	job := &jobstore.Job{
		Status:    jobstore.StatusPending,
		CreatedAt: nowUnix(),
		Params:    exportStartParams(req),
		TraceID:   traceID,
		Tenant:    tenant,
	}
	if err := e.Store.Save(ctx, taskID, job, 0); err != nil {
		return "", fmt.Errorf("export: save job: %w", err)
	}
	e.ensureCleaner()
	return taskID, nil
}

// Run executes a previously started export job. It must run on its
// own goroutine; it blocks until the job finishes, fails, or is
// cancelled, then persists the terminal state with the configured TTL.
func (e *Exporter) Run(ctx context.Context, taskID string) {
	job, ok, err := e.Store.Load(ctx, taskID)
	if err != nil || !ok {
		return
	}

	collection, _ := job.Params["collection"].(string)
	var span trace.Span
	ctx, span = e.tracer().Start(ctx, "collections.export.run", trace.WithAttributes(jobAttributes(taskID, collection, job.Tenant)...))
	defer span.End()

	req, err := parseExportParams(job.Params)
	if err != nil {
		job.Status = jobstore.StatusFailed
		job.Error = err.Error()
		job.FinishedAt = nowUnix()
		_ = e.Store.Save(ctx, taskID, job, e.TTL)
		return
	}

	job.Status = jobstore.StatusRunning
	job.StartedAt = nowUnix()
	_ = e.Store.Save(ctx, taskID, job, 0)

	if !acquire(e.exportSem) {
		job.Status = jobstore.StatusFailed
		job.Error = "export concurrency limit reached"
		job.FinishedAt = nowUnix()
		_ = e.Store.Save(ctx, taskID, job, e.TTL)
		return
	}
	defer release(e.exportSem)

	metrics.ExportRunning.WithLabelValues(req.Collection, job.Tenant).Inc()
	defer metrics.ExportRunning.WithLabelValues(req.Collection, job.Tenant).Dec()

	if err := e.runExportToFile(ctx, taskID, job, req); err != nil {
		if err == errCancelled {
			e.finishJob(ctx, taskID, job, req, jobstore.StatusCancelled, "")
			return
		}
		telemetry.RecordErrorOnSpan(span, err)
		e.finishJob(ctx, taskID, job, req, jobstore.StatusFailed, err.Error())
		return
	}
	e.finishJob(ctx, taskID, job, req, jobstore.StatusSucceeded, "")
}

var errCancelled = fmt.Errorf("cancelled")

func (e *Exporter) runExportToFile(ctx context.Context, taskID string, job *jobstore.Job, req ExportStartRequest) error {
	suffix := ".jsonl"
	if req.WithGzip {
		suffix = ".jsonl.gz"
	}
	f, err := os.CreateTemp("", fmt.Sprintf("export_%s_*%s", req.Collection, suffix))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()
	job.FilePath = f.Name()
	_ = e.Store.Save(ctx, taskID, job, 0)

	var gw *gzip.Writer
	if req.WithGzip {
		gw = gzip.NewWriter(f)
		defer gw.Close()
	}
	write := func(b []byte) error {
		if gw != nil {
			_, err := gw.Write(b)
			return err
		}
		_, err := f.Write(b)
		return err
	}

	var offset *string
	total := 0
	for {
		points, next, err := e.Index.Scroll(ctx, req.Collection, req.Filters, scrollPageSize, offset, req.WithVectors)
		if err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			if e.isCancelled(ctx, taskID) {
				return errCancelled
			}
			line, _ := json.Marshal(exportLine(p, req.WithVectors, req.WithPayload))
			if err := write(append(line, '\n')); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			total++
			job.Written = total
			_ = e.Store.Save(ctx, taskID, job, 0)
			metrics.ExportRowsTotal.WithLabelValues(req.Collection, job.Tenant).Inc()
			if req.DelayMsPerPoint > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(req.DelayMsPerPoint) * time.Millisecond):
				}
			}
			if e.isCancelled(ctx, taskID) {
				return errCancelled
			}
		}
		if next == nil {
			break
		}
		offset = next
	}
	job.Total = &total
	return nil
}

func (e *Exporter) isCancelled(ctx context.Context, taskID string) bool {
	latest, ok, err := e.Store.Load(ctx, taskID)
	return err == nil && ok && latest.Cancelled
}

func (e *Exporter) finishJob(ctx context.Context, taskID string, job *jobstore.Job, req ExportStartRequest, status jobstore.Status, errMsg string) {
	job.Status = status
	job.Error = errMsg
	job.FinishedAt = nowUnix()
	metrics.ExportStatusTotal.WithLabelValues(req.Collection, string(status), job.Tenant).Inc()
	metrics.ExportSeconds.WithLabelValues(req.Collection, job.Tenant).Observe(job.FinishedAt - job.StartedAt)
	_ = e.Store.Save(ctx, taskID, job, e.TTL)
	if job.FilePath != "" {
		ttl, path := e.TTL, job.FilePath
		if ttl <= 0 {
			ttl = time.Hour
		}
		time.AfterFunc(ttl, func() { _ = os.Remove(path) })
	}
}

// Status returns a job's current state, omitting the file path the
// same way the original scrubs it from the response body.
func (e *Exporter) Status(ctx context.Context, taskID string) (map[string]interface{}, error) {
	job, ok, err := e.Store.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gwerrors.New(gwerrors.NotFound, "task not found", nil)
	}
	return map[string]interface{}{
		"task_id":     taskID,
		"status":      job.Status,
		"created_at":  job.CreatedAt,
		"started_at":  job.StartedAt,
		"finished_at": job.FinishedAt,
		"written":     job.Written,
		"total":       job.Total,
		"error":       job.Error,
		"cancelled":   job.Cancelled,
		"params":      job.Params,
	}, nil
}

// Cancel marks a running or pending job for cancellation. It is a
// no-op (reporting the already-terminal status) once the job has
// finished.
func (e *Exporter) Cancel(ctx context.Context, taskID string) (map[string]interface{}, error) {
	job, ok, err := e.Store.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gwerrors.New(gwerrors.NotFound, "task not found", nil)
	}
	if job.Status == jobstore.StatusSucceeded || job.Status == jobstore.StatusFailed || job.Status == jobstore.StatusCancelled {
		return map[string]interface{}{"task_id": taskID, "status": job.Status, "message": "task already finished"}, nil
	}
	job.Cancelled = true
	if err := e.Store.Save(ctx, taskID, job, 0); err != nil {
		return nil, err
	}
	return map[string]interface{}{"task_id": taskID, "status": "cancelling"}, nil
}

// DownloadByTask returns the finished export file's path and whether
// it is gzip-compressed, for the caller to stream as a response.
func (e *Exporter) DownloadByTask(ctx context.Context, taskID string) (path string, collection string, gzipped bool, err error) {
	job, ok, loadErr := e.Store.Load(ctx, taskID)
	if loadErr != nil {
		return "", "", false, loadErr
	}
	if !ok {
		return "", "", false, gwerrors.New(gwerrors.NotFound, "task not found", nil)
	}
	if job.Status != jobstore.StatusSucceeded {
		return "", "", false, gwerrors.New(gwerrors.BadRequest, "task not finished", nil)
	}
	if job.FilePath == "" {
		return "", "", false, gwerrors.New(gwerrors.NotFound, "file not found", nil)
	}
	if _, statErr := os.Stat(job.FilePath); statErr != nil {
		return "", "", false, gwerrors.New(gwerrors.NotFound, "file not found", nil)
	}
	req, parseErr := parseExportParams(job.Params)
	if parseErr != nil {
		return "", "", false, parseErr
	}
	return job.FilePath, req.Collection, req.WithGzip, nil
}

// ensureCleaner starts the background TTL-sweep goroutine exactly
// once per Exporter instance.
func (e *Exporter) ensureCleaner() {
	e.cleanerOnce.Do(func() {
		go e.cleanupLoop()
	})
}

func (e *Exporter) cleanupLoop() {
	ttl := e.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		e.sweepExpiredFiles(ttl)
	}
}

// sweepExpiredFiles removes nothing itself: MemoryStore has no listing
// API to enumerate finished jobs. Job records expire via the store's
// TTL (lazily on Load for MemoryStore, by key expiry for Redis), and
// each terminal job's export file is deleted by the timer finishJob
// schedules for the same TTL.
func (e *Exporter) sweepExpiredFiles(ttl time.Duration) {
	ms, ok := e.Store.(*jobstore.MemoryStore)
	if !ok {
		return
	}
	_ = ms
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func exportStartParams(req ExportStartRequest) map[string]interface{} {
	return map[string]interface{}{
		"collection":         req.Collection,
		"filters":            req.Filters,
		"with_vectors":       req.WithVectors,
		"with_payload":       req.WithPayload,
		"delay_ms_per_point": req.DelayMsPerPoint,
		"with_gzip":          req.WithGzip,
	}
}

func parseExportParams(params map[string]interface{}) (ExportStartRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return ExportStartRequest{}, fmt.Errorf("marshal params: %w", err)
	}
	var out struct {
		Collection      string                 `json:"collection"`
		Filters         map[string]interface{} `json:"filters"`
		WithVectors     bool                   `json:"with_vectors"`
		WithPayload     bool                   `json:"with_payload"`
		DelayMsPerPoint int                    `json:"delay_ms_per_point"`
		WithGzip        bool                   `json:"with_gzip"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return ExportStartRequest{}, fmt.Errorf("unmarshal params: %w", err)
	}
	return ExportStartRequest{
		ExportRequest: ExportRequest{
			Collection:  out.Collection,
			Filters:     out.Filters,
			WithVectors: out.WithVectors,
			WithPayload: out.WithPayload,
		},
		DelayMsPerPoint: out.DelayMsPerPoint,
		WithGzip:        out.WithGzip,
	}, nil
}
