package api

import (
	"net/http"
	"strings"

	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/domain/model"
)

// CuratorHandler serves the curator workflow. Routes are registered behind
// RequireSecret.
type CuratorHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewCuratorHandler creates a new curator handler.
func NewCuratorHandler(deps Dependencies, maxBodyBytes int64) *CuratorHandler {
	return &CuratorHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

type verificationRequest struct {
	State   string `json:"state"`
	Curator string `json:"curator"`
}

type archiveRequest struct {
	Curator string `json:"curator"`
}

type resolveRequest struct {
	Decision string `json:"decision"`
	Curator  string `json:"curator"`
}

type archiveResponse struct {
	EntryID  string `json:"entryId"`
	Archived bool   `json:"archived"`
}

// HandleVerification handles POST /entries/{id}/verification requests.
func (h *CuratorHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req verificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id := r.PathValue("id")
	state := model.VerificationState(strings.ToLower(strings.TrimSpace(req.State)))
	score, err := h.deps.SetVerification(r.Context(), id, state, req.Curator)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{EntryID: id, TrustScore: score})
}

// HandleArchive handles POST /entries/{id}/archive requests.
func (h *CuratorHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req archiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id := r.PathValue("id")
	if err := h.deps.Archive(r.Context(), id, req.Curator); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{EntryID: id, Archived: true})
}

// HandleListReviews handles GET /reviews?status=pending&limit=N requests.
func (h *CuratorHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := model.ReviewStatus(strings.ToLower(r.URL.Query().Get("status")))
	reviews, err := h.deps.Reviews(r.Context(), status, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleResolve handles POST /reviews/{id}/resolve requests.
func (h *CuratorHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	decision := service.Decision(strings.ToLower(strings.TrimSpace(req.Decision)))
	review, err := h.deps.ResolveReview(r.Context(), r.PathValue("id"), decision, req.Curator)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
