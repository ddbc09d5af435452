package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TraceHeader = "X-Trace-ID"

type loggerContextKey struct{}

// TraceMiddleware assigns each request a trace id, echoes it in the response
// and stores a logger tagged with it in the request context.
func TraceMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if traceID == "" || len(traceID) > 128 {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceHeader, traceID)

			ctx := context.WithValue(r.Context(), traceContextKey, traceID)
			ctx = context.WithValue(ctx, loggerContextKey{}, logger.With(zap.String("trace_id", traceID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext returns the request logger, or the global logger outside a request.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerContextKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}
