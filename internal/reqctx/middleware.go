package reqctx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/neal-yes/rag-gateway/internal/metrics"
)

// Config configures the request-context middleware, mirroring the
// original's AUTH_*/HEADER_TENANT_KEY settings.
type Config struct {
	HeaderTenantKey      string
	RequireTenant        bool
	JWTSecret            string
	JWTAlg               string
	TenantClaim          string
	EnforceJWTTenant     bool
	Logger               *slog.Logger
}

// Middleware builds the net/http middleware the router mounts after
// chi's RequestID/Recoverer/Timeout: it assigns/propagates a request ID, resolves the tenant,
// times the request, and injects request_id into small JSON
// responses — all before the handler sees the request.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			tenant, err := resolveTenant(r, cfg)
			if err != nil {
				writeTenantError(w, requestID, err)
				return
			}

			reqLogger := logger.With("request_id", requestID, "tenant", tenant)
			ctx := WithRequestID(r.Context(), requestID)
			ctx = WithTenant(ctx, tenant)
			ctx = WithLogger(ctx, reqLogger)

			rec := &statusRecorder{ResponseWriter: w, requestID: requestID, status: http.StatusOK, buf: &bytes.Buffer{}}
			next.ServeHTTP(rec, r.WithContext(ctx))

			finalize(rec, requestID)

			duration := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, statusClass(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, statusClass(rec.status)).Observe(duration.Seconds())

			reqLogger.Info("request_done",
				"path", r.URL.Path,
				"method", r.Method,
				"status_code", rec.status,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// statusRecorder buffers JSON responses so their bodies can have
// request_id injected after the handler runs, the same way the
// original rebuilds non-streaming Response objects. Every other
// response (the ask SSE stream, NDJSON/gzip downloads, served files)
// is passed straight through to the underlying ResponseWriter as soon
// as its header is written, with X-Request-Id set, so it streams and
// flushes without waiting for finalize and its body is never rewritten.
type statusRecorder struct {
	http.ResponseWriter
	requestID   string
	status      int
	wroteHeader bool
	buf         *bytes.Buffer
	streaming   bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	if !jsonContentType(r.Header().Get("Content-Type")) {
		r.streaming = true
		r.ResponseWriter.Header().Set("X-Request-Id", r.requestID)
		r.ResponseWriter.WriteHeader(status)
		return
	}
	// Defer the real WriteHeader until finalize, so headers set after
	// the handler returns (like injected request_id) are still valid.
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if r.streaming {
		return r.ResponseWriter.Write(b)
	}
	return r.buf.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func finalize(r *statusRecorder, requestID string) {
	if r.streaming {
		return
	}

	body := r.buf.Bytes()
	ct := r.Header().Get("Content-Type")
	if r.status < 400 && len(body) > 0 && jsonContentType(ct) {
		var asMap map[string]interface{}
		if err := json.Unmarshal(body, &asMap); err == nil {
			if _, has := asMap["request_id"]; !has {
				asMap["request_id"] = requestID
				if rewritten, err := json.Marshal(asMap); err == nil {
					body = rewritten
				}
			}
		}
	}

	r.Header().Set("X-Request-Id", requestID)
	r.ResponseWriter.WriteHeader(r.status)
	_, _ = r.ResponseWriter.Write(body)
}

func jsonContentType(ct string) bool {
	return len(ct) >= len("application/json") && ct[:len("application/json")] == "application/json"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// resolveTenant mirrors the original's _resolve_tenant: header first,
// then an optional JWT bearer-claim cross-check (strict or lenient).
func resolveTenant(r *http.Request, cfg Config) (string, error) {
	headerKey := cfg.HeaderTenantKey
	if headerKey == "" {
		headerKey = "X-Tenant-Id"
	}

	header := r.Header.Get(headerKey)
	var tenant string
	if header != "" {
		if !ValidTenantHeader(header) {
			if cfg.RequireTenant {
				return "", gwerrors.New(gwerrors.BadRequest, "invalid tenant header", nil)
			}
			tenant = AnonymousTenant
		} else {
			tenant = header
		}
	} else if cfg.RequireTenant {
		return "", gwerrors.New(gwerrors.BadRequest, "tenant header required", nil)
	}

	if cfg.JWTSecret != "" {
		if claim, ok := jwtTenantClaim(r, cfg); ok {
			if tenant == "" {
				tenant = claim
			} else if tenant != claim {
				if cfg.EnforceJWTTenant {
					return "", gwerrors.New(gwerrors.Forbidden, "tenant header does not match bearer claim", nil)
				}
				tenant = claim
			}
		}
	}

	if tenant == "" {
		tenant = AnonymousTenant
	}
	return tenant, nil
}

// jwtTenantClaim extracts cfg.TenantClaim from a Bearer token's
// HMAC-verified claims. Any decode failure is non-fatal — it simply
// means no claim is available to cross-check against, matching the
// original's broad "any JWT decode exception is logged and ignored".
func jwtTenantClaim(r *http.Request, cfg Config) (string, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authz) <= len(prefix) || authz[:len(prefix)] != prefix {
		return "", false
	}
	tokenString := authz[len(prefix):]

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{algOrDefault(cfg.JWTAlg)}))
	if err != nil {
		return "", false
	}

	claimName := cfg.TenantClaim
	if claimName == "" {
		claimName = "tenant"
	}
	v, ok := claims[claimName]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func algOrDefault(alg string) string {
	if alg == "" {
		return "HS256"
	}
	return alg
}

func writeTenantError(w http.ResponseWriter, requestID string, err error) {
	kind := gwerrors.Internal
	var ge *gwerrors.GatewayError
	if e, ok := err.(*gwerrors.GatewayError); ok {
		ge = e
		kind = ge.Kind
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(gwerrors.HTTPStatus(kind))
	body := map[string]interface{}{"error": string(kind), "request_id": requestID}
	if ge != nil {
		body["message"] = ge.Message
	}
	_ = json.NewEncoder(w).Encode(body)
}
