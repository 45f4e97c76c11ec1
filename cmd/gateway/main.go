// Command gateway starts the RAG HTTP gateway: it wires the Ollama
// generation/embedding adapter, the Qdrant vector index, the guarded
// tool-invocation facade, and the collection import/export engine
// behind a single chi router, then serves it with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neal-yes/rag-gateway/internal/ask"
	"github.com/neal-yes/rag-gateway/internal/collections"
	"github.com/neal-yes/rag-gateway/internal/config"
	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/guard"
	"github.com/neal-yes/rag-gateway/internal/httpapi"
	"github.com/neal-yes/rag-gateway/internal/jobstore"
	"github.com/neal-yes/rag-gateway/internal/reqctx"
	"github.com/neal-yes/rag-gateway/internal/toolsgw"
	"github.com/neal-yes/rag-gateway/pkg/telemetry"
)

func main() {
	cfg := config.Load()

	logger := setupLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTracer, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("telemetry init failed, continuing without tracing", "error", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()
	// Ask and export spans use the global provider Init installed; with
	// no endpoint (or a failed Init) this is a no-op tracer.
	tracer := telemetry.GetTracer(&telemetry.Settings{IsEnabled: cfg.OTLPEndpoint != "" && err == nil})

	ollama := engine.NewOllama(engine.OllamaConfig{
		BaseURL:   fmt.Sprintf("http://%s:%d", cfg.OllamaHost, cfg.OllamaPort),
		KeepAlive: cfg.OllamaKeepAlive,
	})
	qdrant := engine.NewQdrant(fmt.Sprintf("http://%s:%d", cfg.QdrantHost, cfg.QdrantPort))

	hostPolicy, err := toolsgw.LoadHostPolicy(cfg.HostPolicyPath)
	if err != nil {
		logger.Error("host policy load failed", "error", err)
		os.Exit(1)
	}

	store := jobstore.New(cfg.JobStoreRedisAddr, "", 0)

	askPipeline := &ask.Pipeline{
		Generator: ollama,
		Embedder:  ollama,
		Index:     qdrant,
		Config: ask.Config{
			Model:             cfg.OllamaModel,
			EmbedModel:        cfg.OllamaModel,
			DefaultCollection: cfg.QdrantCollection,
			DefaultTopK:       cfg.DefaultTopK,
			DefaultNumPredict: cfg.DefaultNumPredict,
		},
		Tracer: tracer,
	}

	exporter := collections.NewExporter(qdrant, store, cfg.ExportTTL, cfg.ExportMaxConcurrency, cfg.DownloadMaxConcurrency, logger)
	exporter.Tracer = tracer

	tools := &toolsgw.Gateway{
		Policies:   toolsgw.NewPolicyStore(cfg.ToolPolicyPath),
		HostPolicy: hostPolicy,
		Guard:      guard.NewExecutor(),
		Client:     http.DefaultClient,
	}

	deps := httpapi.Deps{
		ReqCtx: reqctx.Config{
			HeaderTenantKey:      cfg.HeaderTenantKey,
			RequireTenant:        cfg.AuthRequireTenant,
			JWTSecret:            cfg.AuthJWTSecret,
			JWTAlg:               cfg.AuthJWTAlg,
			TenantClaim:          cfg.AuthTenantClaim,
			EnforceJWTTenant:     cfg.AuthEnforceJWTTenant,
			Logger:               logger,
		},
		Ask:      askPipeline,
		Admin:    &collections.Admin{Index: qdrant, Embedder: ollama},
		Importer: &collections.Importer{Index: qdrant},
		Exporter: exporter,
		Tools:          tools,
		RequestTimeout: cfg.RequestTimeout,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "port", cfg.APIPort)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server exited unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func setupLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
