package api

import (
	"context"
	"net/http"

	service "github.com/okian/trustgate/internal/app"
)

// RatingsHandler handles community ratings.
type RatingsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	proxySecret  string
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps Dependencies, maxBodyBytes int64, proxySecret string) *RatingsHandler {
	return &RatingsHandler{deps: deps, maxBodyBytes: maxBodyBytes, proxySecret: proxySecret}
}

type ratingRequest struct {
	EntryID      string `json:"entryId"`
	Rating       int    `json:"rating"`
	FeedbackText string `json:"feedbackText"`
}

type ratingResponse struct {
	EntryID    string  `json:"entryId"`
	TrustScore float64 `json:"trustScore"`
}

// HandleCreate handles POST /ratings requests.
func (h *RatingsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.deps.Rate)
}

// HandleUpdate handles PUT /ratings requests.
func (h *RatingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.deps.UpdateRating)
}

func (h *RatingsHandler) handleWrite(w http.ResponseWriter, r *http.Request, write func(context.Context, service.RatingInput) (float64, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req ratingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	score, err := write(r.Context(), service.RatingInput{
		EntryID:      req.EntryID,
		Rating:       req.Rating,
		FeedbackText: req.FeedbackText,
		Rater:        raterIdentity(r, h.proxySecret),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{EntryID: req.EntryID, TrustScore: score})
}

// HandleDelete handles DELETE /ratings?entryId= requests.
func (h *RatingsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	entryID := r.URL.Query().Get("entryId")
	score, err := h.deps.DeleteRatings(r.Context(), entryID, raterIdentity(r, h.proxySecret))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{EntryID: entryID, TrustScore: score})
}
