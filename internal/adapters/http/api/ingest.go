package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/logger"
)

// IngestHandler handles batch submissions from scrapers and partners.
type IngestHandler struct {
	deps         Dependencies
	secret       string
	maxBodyBytes int64
	logger       logger.Logger
}

// NewIngestHandler creates a new ingest handler. An empty secret rejects
// every request.
func NewIngestHandler(deps Dependencies, secret string, maxBodyBytes int64, l logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, secret: secret, maxBodyBytes: maxBodyBytes, logger: l}
}

type ingestRequest struct {
	Events []json.RawMessage `json:"events"`
}

// itemRequest is the wire shape of one candidate item.
type itemRequest struct {
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OccurrenceDate looseDate  `json:"occurrenceDate"`
	Location       string     `json:"location"`
	SourceURL      string     `json:"sourceUrl"`
	OrganizerName  string     `json:"organizerName"`
	Tags           []string   `json:"tags"`
	Price          *float64   `json:"price"`
	SubmittedBy    string     `json:"submittedBy"`
	SubmittedAt    *time.Time `json:"submittedAt"`
}

// looseDate accepts a date as a JSON string or as unix seconds.
type looseDate string

func (d *looseDate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*d = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = looseDate(s)
	default:
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("occurrenceDate must be a string or unix seconds: %w", err)
		}
		*d = looseDate(strconv.FormatInt(n, 10))
	}
	return nil
}

type ingestResponse struct {
	Success bool                 `json:"success"`
	Stats   service.IngestStats  `json:"stats"`
	Results []service.ItemResult `json:"results"`
}

// HandleIngest handles POST /ingest requests.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(h.secret, r.Header.Get(ingestSecretHeader)) {
		writeFailure(w, ErrUnauthorized)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	now := time.Now().UTC()
	batch := make([]service.Submission, len(req.Events))
	for i, raw := range req.Events {
		batch[i] = toSubmission(raw, now)
	}

	report, err := h.deps.Ingest(r.Context(), batch)
	if err != nil {
		status, _ := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "ingest failed", logger.Int("items", len(batch)), logger.Error(err))
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Success: true, Stats: report.Stats, Results: report.Results})
}

// toSubmission decodes one item. Decoding problems stay with the item so the
// rest of the batch is still triaged.
func toSubmission(raw json.RawMessage, now time.Time) service.Submission {
	var in itemRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return service.Submission{Item: model.CandidateItem{Title: titleOf(raw)}, Err: fmt.Errorf("%w: %w", model.ErrValidation, err)}
	}
	item := model.CandidateItem{
		Type:          model.ItemType(strings.ToLower(strings.TrimSpace(in.Type))),
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		SourceURL:     strings.TrimSpace(in.SourceURL),
		OrganizerName: in.OrganizerName,
		Tags:          in.Tags,
		Price:         in.Price,
		SubmittedBy:   strings.TrimSpace(in.SubmittedBy),
		SubmittedAt:   now,
	}
	if in.SubmittedAt != nil && !in.SubmittedAt.IsZero() {
		item.SubmittedAt = in.SubmittedAt.UTC()
	}
	occurred, err := model.ParseOccurrence(string(in.OccurrenceDate))
	if err != nil {
		return service.Submission{Item: item, Err: err}
	}
	item.OccurrenceDate = occurred
	return service.Submission{Item: item}
}

// titleOf recovers the title of an item that failed to decode, for reporting.
func titleOf(raw json.RawMessage) string {
	var head struct {
		Title string `json:"title"`
	}
	if json.Unmarshal(raw, &head) != nil {
		return ""
	}
	return head.Title
}
