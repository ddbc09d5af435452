package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/api/middleware"
	"github.com/ayo6706/salon-ledger/internal/api/problem"
	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/google/uuid"
)

var (
	errTenantForbidden = errors.New("token is not allowed to read this unidade_id")
	errTenantRequired  = errors.New("unidade_id is required")
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	RespondErrorKind(w, r, status, problemType, message, "")
}

// RespondErrorKind writes an error response tagged with a pipeline error kind.
func RespondErrorKind(w http.ResponseWriter, r *http.Request, status int, problemType, message string, kind service.ErrorKind) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.WriteKind(w, r, status, problemType, http.StatusText(status), message, string(kind))
}

// requestTenant resolves the unit a report request targets. Admin tokens may
// name any unidade_id; other tokens are pinned to their own claim.
func requestTenant(r *http.Request) (uuid.UUID, error) {
	claimed, hasClaim := middleware.TenantIDFromContext(r.Context())
	isAdmin := middleware.UserRoleFromContext(r.Context()) == middleware.RoleAdmin

	raw := strings.TrimSpace(r.URL.Query().Get("unidade_id"))
	if raw == "" {
		if hasClaim {
			return claimed, nil
		}
		return uuid.Nil, errTenantRequired
	}
	requested, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("unidade_id must be a UUID")
	}
	if !isAdmin && (!hasClaim || claimed != requested) {
		return uuid.Nil, errTenantForbidden
	}
	return requested, nil
}

// requestPeriod parses the from/to query parameters (YYYY-MM-DD, inclusive).
func requestPeriod(r *http.Request) (service.Period, error) {
	q := r.URL.Query()
	from, err := time.Parse(domain.PaymentDateLayout, strings.TrimSpace(q.Get("from")))
	if err != nil {
		return service.Period{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(domain.PaymentDateLayout, strings.TrimSpace(q.Get("to")))
	if err != nil {
		return service.Period{}, errors.New("to must be YYYY-MM-DD")
	}
	p := service.Period{From: from, To: to}
	return p, p.Validate()
}

// queryBool reads the first of names present in the query string.
func queryBool(r *http.Request, names ...string) bool {
	q := r.URL.Query()
	for _, name := range names {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(name))
		return err == nil && v
	}
	return false
}
