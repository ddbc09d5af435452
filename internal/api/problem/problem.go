package problem

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "application/problem+json"
	baseTypeURL = "https://errors.salon-ledger.dev/"
	traceHeader = "X-Trace-ID"
)

// Details is an RFC 7807 body. Kind carries the pipeline error kind
// (e.g. AccountNotFound) so provider-side tooling can branch without
// parsing the Portuguese detail message.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends a problem response without a kind.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	WriteKind(w, r, status, problemType, title, detail, "")
}

// WriteKind sends a problem response tagged with an error kind.
func WriteKind(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail, kind string) {
	if title == "" {
		title = http.StatusText(status)
	}
	if problemType == "" {
		problemType = "about:blank"
	}
	d := Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Kind:   kind,
	}
	// The trace middleware sets the response header before any handler runs.
	d.RequestID = w.Header().Get(traceHeader)
	if r != nil {
		d.Instance = r.URL.Path
		if d.RequestID == "" {
			d.RequestID = r.Header.Get(traceHeader)
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(d)
}
