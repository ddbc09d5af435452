package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayo6706/salon-ledger/internal/api/problem"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// WebhookRateLimiter limits provider callbacks per unit. All units share the
// provider's egress IPs, so keying by IP alone would let one busy salon
// throttle the others.
func WebhookRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP, func(r *http.Request) (string, error) {
			return chi.URLParam(r, "unidadeID"), nil
		}),
		httprate.WithLimitHandler(limitExceeded(fmt.Sprintf("Webhook rate limit of %d req/s exceeded for this unit", rps))),
	)
}

// ReportRateLimiter limits report requests per unit and user.
func ReportRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID := UserIDFromContext(r.Context()); userID != "" {
				tenant, _ := TenantIDFromContext(r.Context())
				return tenant.String() + "/" + userID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(limitExceeded(fmt.Sprintf("Report rate limit of %d req/s exceeded for this user", rps))),
	)
}

func limitExceeded(detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limit-exceeded"),
			http.StatusText(http.StatusTooManyRequests), detail)
	}
}
