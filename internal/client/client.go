// Package client talks to a trustgate service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/sethvargo/go-retry"

	"github.com/okian/trustgate/internal/domain/model"
)

// Item is a candidate item as submitted to /ingest.
type Item struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	OccurrenceDate string   `json:"occurrenceDate,omitempty"`
	Location       string   `json:"location,omitempty"`
	SourceURL      string   `json:"sourceUrl,omitempty"`
	OrganizerName  string   `json:"organizerName,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	SubmittedBy    string   `json:"submittedBy"`
}

// IngestStats counts a batch's outcomes.
type IngestStats struct {
	Total            int   `json:"total"`
	AutoApproved     int   `json:"auto_approved"`
	ReviewQuick      int   `json:"review_quick"`
	ReviewDeep       int   `json:"review_deep"`
	Duplicates       int   `json:"duplicates"`
	Failed           int   `json:"failed"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// ItemResult is the outcome for one submitted item.
type ItemResult struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
	EntryID  string `json:"entry_id,omitempty"`
	ReviewID string `json:"review_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// IngestReport is the answer to one batch.
type IngestReport struct {
	Success bool         `json:"success"`
	Stats   IngestStats  `json:"stats"`
	Results []ItemResult `json:"results"`
}

// Score is the answer to rating and verification calls.
type Score struct {
	EntryID    string  `json:"entryId"`
	TrustScore float64 `json:"trustScore"`
}

// Client is a trustgate API client. It is safe for concurrent use.
type Client struct {
	baseURL          string
	http             *http.Client
	ingestSecret     string
	curatorSecret    string
	raterID          string
	raterProxySecret string
	retryBase        time.Duration
	maxRetries       uint64
	userAgent        string
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrRequest, baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		retryBase:  defaultRetryBase,
		maxRetries: defaultMaxRetries,
		userAgent:  "triagectl/" + versioninfo.Short(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ingest submits one batch. Transport failures, 429 and 5xx answers are
// retried for the whole batch with Fibonacci backoff: items stored by an
// earlier attempt come back as duplicates, so repeating is safe.
func (c *Client) Ingest(ctx context.Context, items []Item) (IngestReport, error) {
	body := struct {
		Events []Item `json:"events"`
	}{Events: items}
	headers := map[string]string{"X-Ingest-Secret": c.ingestSecret}

	b := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(c.retryBase))
	return retry.DoValue(ctx, b, func(ctx context.Context) (IngestReport, error) {
		var rep IngestReport
		err := c.do(ctx, http.MethodPost, "/ingest", body, headers, &rep)
		if retryable(err) {
			return rep, retry.RetryableError(err)
		}
		return rep, err
	})
}

func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, ErrDecode)
}

// Rate posts a new rating.
func (c *Client) Rate(ctx context.Context, entryID string, rating int, feedback string) (Score, error) {
	return c.writeRating(ctx, http.MethodPost, entryID, rating, feedback)
}

// UpdateRating replaces the caller's latest rating.
func (c *Client) UpdateRating(ctx context.Context, entryID string, rating int, feedback string) (Score, error) {
	return c.writeRating(ctx, http.MethodPut, entryID, rating, feedback)
}

func (c *Client) writeRating(ctx context.Context, method, entryID string, rating int, feedback string) (Score, error) {
	body := map[string]any{"entryId": entryID, "rating": rating}
	if feedback != "" {
		body["feedbackText"] = feedback
	}
	var s Score
	err := c.do(ctx, method, "/ratings", body, c.raterHeaders(), &s)
	return s, err
}

// DeleteRatings removes the caller's ratings on an entry and returns its
// recalculated score.
func (c *Client) DeleteRatings(ctx context.Context, entryID string) (Score, error) {
	var s Score
	err := c.do(ctx, http.MethodDelete, "/ratings?entryId="+url.QueryEscape(entryID), nil, c.raterHeaders(), &s)
	return s, err
}

// Entry fetches one entry.
func (c *Client) Entry(ctx context.Context, id string) (model.KnowledgeEntry, error) {
	var e model.KnowledgeEntry
	err := c.do(ctx, http.MethodGet, "/entries/"+url.PathEscape(id), nil, nil, &e)
	return e, err
}

// History fetches an entry's score history, newest first.
func (c *Client) History(ctx context.Context, id string) ([]model.ScoreHistory, error) {
	var h []model.ScoreHistory
	err := c.do(ctx, http.MethodGet, "/entries/"+url.PathEscape(id)+"/history", nil, nil, &h)
	return h, err
}

// Reviews lists review items with status.
func (c *Client) Reviews(ctx context.Context, status string) ([]model.ReviewItem, error) {
	var r []model.ReviewItem
	path := "/reviews"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	err := c.do(ctx, http.MethodGet, path, nil, c.curatorHeaders(), &r)
	return r, err
}

// Resolve approves or rejects a review.
func (c *Client) Resolve(ctx context.Context, reviewID, decision, curator string) (model.ReviewItem, error) {
	var r model.ReviewItem
	body := map[string]string{"decision": decision, "curator": curator}
	err := c.do(ctx, http.MethodPost, "/reviews/"+url.PathEscape(reviewID)+"/resolve", body, c.curatorHeaders(), &r)
	return r, err
}

// Healthy checks that the service answers /healthz.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *Client) raterHeaders() map[string]string {
	if c.raterID == "" {
		return nil
	}
	return map[string]string{"X-Rater-Id": c.raterID, "X-Rater-Proxy-Secret": c.raterProxySecret}
}

func (c *Client) curatorHeaders() map[string]string {
	return map[string]string{"X-Curator-Secret": c.curatorSecret}
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode body: %w", ErrRequest, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	return nil
}
