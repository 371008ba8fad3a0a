// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/trustgate/internal/adapters/repository"
	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/domain/audit"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ingest(ctx context.Context, batch []service.Submission) (service.IngestReport, error)

	Rate(ctx context.Context, in service.RatingInput) (float64, error)
	UpdateRating(ctx context.Context, in service.RatingInput) (float64, error)
	DeleteRatings(ctx context.Context, entryID, rater string) (float64, error)

	GetEntry(ctx context.Context, id string) (model.KnowledgeEntry, error)
	History(ctx context.Context, entryID string, limit int) ([]model.ScoreHistory, error)
	AuditTrail(ctx context.Context, entryID string, from, to time.Time, limit int) ([]model.AuditEntry, error)

	// Curator operations.
	Reviews(ctx context.Context, status model.ReviewStatus, limit int) ([]model.ReviewItem, error)
	ResolveReview(ctx context.Context, reviewID string, decision service.Decision, curator string) (model.ReviewItem, error)
	SetVerification(ctx context.Context, entryID string, state model.VerificationState, curator string) (float64, error)
	Archive(ctx context.Context, entryID, curator string) error

	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	ingestHandler  *IngestHandler
	ratingsHandler *RatingsHandler
	entriesHandler *EntriesHandler
	curatorHandler *CuratorHandler

	curatorSecret string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := settings{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		ingestHandler:  NewIngestHandler(deps, cfg.ingestSecret, cfg.maxBodyBytes, cfg.logger),
		ratingsHandler: NewRatingsHandler(deps, cfg.maxBodyBytes, cfg.raterProxySecret),
		entriesHandler: NewEntriesHandler(deps),
		curatorHandler: NewCuratorHandler(deps, cfg.maxBodyBytes),
		curatorSecret:  cfg.curatorSecret,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	curator := func(h http.HandlerFunc) http.HandlerFunc {
		return RequireSecret(curatorSecretHeader, s.curatorSecret, h)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /ingest", MetricsMiddleware(s.ingestHandler.HandleIngest, "ingest"))

	mux.HandleFunc("POST /ratings", MetricsMiddleware(s.ratingsHandler.HandleCreate, "ratings"))
	mux.HandleFunc("PUT /ratings", MetricsMiddleware(s.ratingsHandler.HandleUpdate, "ratings"))
	mux.HandleFunc("DELETE /ratings", MetricsMiddleware(s.ratingsHandler.HandleDelete, "ratings"))

	mux.HandleFunc("GET /entries/{id}", MetricsMiddleware(s.entriesHandler.HandleGet, "entry"))
	mux.HandleFunc("GET /entries/{id}/history", MetricsMiddleware(s.entriesHandler.HandleHistory, "entry_history"))
	mux.HandleFunc("GET /entries/{id}/audit", MetricsMiddleware(s.entriesHandler.HandleAudit, "entry_audit"))

	mux.HandleFunc("POST /entries/{id}/verification", MetricsMiddleware(curator(s.curatorHandler.HandleVerification), "entry_verification"))
	mux.HandleFunc("POST /entries/{id}/archive", MetricsMiddleware(curator(s.curatorHandler.HandleArchive), "entry_archive"))
	mux.HandleFunc("GET /reviews", MetricsMiddleware(curator(s.curatorHandler.HandleListReviews), "reviews"))
	mux.HandleFunc("POST /reviews/{id}/resolve", MetricsMiddleware(curator(s.curatorHandler.HandleResolve), "review_resolve"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a domain error onto a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		// internals stay in the logs
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateRating):
		return http.StatusConflict, "duplicate_rating"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, audit.ErrAuditWrite):
		return http.StatusInternalServerError, "audit_write_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return wrapBadRequest(err)
	}
	return nil
}
