package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxListLimit = 1000

// EntriesHandler serves published entries, their score history and audit trail.
type EntriesHandler struct {
	deps Dependencies
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(deps Dependencies) *EntriesHandler {
	return &EntriesHandler{deps: deps}
}

// HandleGet handles GET /entries/{id} requests.
func (h *EntriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleHistory handles GET /entries/{id}/history?limit=N requests.
func (h *EntriesHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	history, err := h.deps.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleAudit handles GET /entries/{id}/audit?from=&to= requests. Bounds are
// RFC3339 and inclusive.
func (h *EntriesHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTime(q.Get("from"), "from")
	if err != nil {
		writeFailure(w, err)
		return
	}
	to, err := parseTime(q.Get("to"), "to")
	if err != nil {
		writeFailure(w, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	trail, err := h.deps.AuditTrail(r.Context(), r.PathValue("id"), from, to, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func parseTime(raw, name string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", ErrBadRequest, name)
	}
	return t.UTC(), nil
}

// parseLimit reads ?limit=N; absent means the store default.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, maxListLimit)
	}
	return n, nil
}
