// Package config loads gateway configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved set of environment-driven settings.
type Config struct {
	APIPort int

	OllamaHost      string
	OllamaPort      int
	OllamaModel     string
	OllamaKeepAlive string
	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration

	QdrantHost       string
	QdrantPort       int
	QdrantCollection string

	DefaultTopK        int
	DefaultNumPredict  int

	HeaderTenantKey   string
	AuthJWTSecret     string
	AuthJWTAlg        string
	AuthTenantClaim   string
	AuthRequireTenant bool
	AuthEnforceJWTTenant bool

	ExportMaxConcurrency   int
	DownloadMaxConcurrency int
	ExportTTL              time.Duration

	JobStoreRedisAddr string

	LogFormat string

	OTLPEndpoint string
	ServiceName  string

	ToolPolicyPath string
	HostPolicyPath string

	RequestTimeout time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads the .env file if present (a missing file is not an
// error) and returns a Config populated from the environment, falling
// back to the defaults the original service shipped.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIPort: getEnvInt("API_PORT", 8000),

		OllamaHost:      getEnv("OLLAMA_HOST", "localhost"),
		OllamaPort:      getEnvInt("OLLAMA_PORT", 11434),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama2"),
		OllamaKeepAlive: getEnv("OLLAMA_KEEP_ALIVE", "5m"),
		GenerateTimeout: time.Duration(getEnvInt("GENERATE_TIMEOUT_SECONDS", 300)) * time.Second,
		EmbedTimeout:    time.Duration(getEnvInt("EMBED_TIMEOUT_SECONDS", 120)) * time.Second,

		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6333),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "default"),

		DefaultTopK:       getEnvInt("DEFAULT_TOP_K", 5),
		DefaultNumPredict: getEnvInt("DEFAULT_NUM_PREDICT", 256),

		HeaderTenantKey:      getEnv("HEADER_TENANT_KEY", "X-Tenant-Id"),
		AuthJWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTAlg:           getEnv("AUTH_JWT_ALG", "HS256"),
		AuthTenantClaim:      getEnv("AUTH_TENANT_CLAIM", "tenant"),
		AuthRequireTenant:    getEnvBool("AUTH_REQUIRE_TENANT", false),
		AuthEnforceJWTTenant: getEnvBool("AUTH_ENFORCE_JWT_TENANT", false),

		ExportMaxConcurrency:   getEnvInt("EXPORT_MAX_CONCURRENCY", 2),
		DownloadMaxConcurrency: getEnvInt("DOWNLOAD_MAX_CONCURRENCY", 4),
		ExportTTL:              time.Duration(getEnvInt("EXPORT_TTL_SECONDS", 3600)) * time.Second,

		JobStoreRedisAddr: getEnv("EXPORT_JOBSTORE_REDIS_ADDR", ""),

		LogFormat: getEnv("LOG_FORMAT", "json"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "rag-gateway"),

		ToolPolicyPath: getEnv("TOOL_POLICY_PATH", ""),
		HostPolicyPath: getEnv("HOST_POLICY_PATH", ""),

		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}
