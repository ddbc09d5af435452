package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingMiddleware writes one log line per request. Server errors log at
// error level, client errors at warn, probes and scrapes at debug.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", routePattern(r)),
			zap.Int("status", rw.Status()),
			zap.Int("bytes", rw.bytes),
			zap.Duration("duration", time.Since(start)),
		}
		if unit := chi.URLParam(r, "unidadeID"); unit != "" {
			fields = append(fields, zap.String("unidade_id", unit))
		} else if tenant, ok := TenantIDFromContext(r.Context()); ok {
			fields = append(fields, zap.String("unidade_id", tenant.String()))
		}
		if replay := rw.Header().Get("X-Idempotent-Replay"); replay != "" {
			fields = append(fields, zap.String("replayed_from", replay))
		}

		logger := LoggerFromContext(r.Context())
		if ce := logger.Check(requestLevel(r, rw.Status()), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	})
}

func requestLevel(r *http.Request, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case strings.HasPrefix(r.URL.Path, "/health/"), r.URL.Path == "/metrics":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// statusRecorder captures the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}
