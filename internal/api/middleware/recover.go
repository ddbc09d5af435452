package middleware

import (
	"net/http"

	"github.com/ayo6706/salon-ledger/internal/api/problem"
	"go.uber.org/zap"
)

// RecoverMiddleware turns a handler panic into a 500 problem response.
// http.ErrAbortHandler is re-raised so the server aborts the connection.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LoggerFromContext(r.Context()).Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", r.Method),
				zap.String("route", routePattern(r)),
				zap.Stack("stack"),
			)
			problem.Write(w, r, http.StatusInternalServerError, problem.Type("internal-server-error"),
				http.StatusText(http.StatusInternalServerError), "unexpected server error")
		}()
		next.ServeHTTP(w, r)
	})
}
