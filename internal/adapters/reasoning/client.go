// Package reasoning asks an external reasoning service to judge candidate
// items and turns its answer into a ModerationResult.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

const (
	apiVersion      = "2023-06-01"
	maxResponseSize = 1 << 20
)

// Reasoner sends one prompt and returns the raw text answer.
type Reasoner interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Client talks to a Messages-style HTTP API. It never retries.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

var _ Reasoner = (*Client)(nil)

// NewClient creates a Client. rps <= 0 disables client-side rate limiting.
func NewClient(endpoint, apiKey, model string, maxTokens int, rps float64, burst int) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		http: &http.Client{
			Transport: &http.Transport{
				IdleConnTimeout: 90 * time.Second,
				MaxIdleConns:    100,
			},
		},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: "trustgate/" + versioninfo.Short(),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete posts one user message and returns the concatenated text blocks
// of the answer. Waiting for the rate limiter counts against ctx.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %w", ErrReasoning, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: constructing request: %w", ErrReasoning, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("anthropic-version", apiVersion)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrReasoning, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: reading response: %w", ErrReasoning, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			return "", fmt.Errorf("%w: %d %s: %s", ErrStatus, resp.StatusCode, eb.Error.Type, eb.Error.Message)
		}
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return "", fmt.Errorf("%w: decoding envelope: %w", ErrMalformed, err)
	}
	var sb strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text content", ErrMalformed)
	}
	return sb.String(), nil
}
