package client

import (
	"net/http"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryBase  = 500 * time.Millisecond
	defaultMaxRetries = 4
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithIngestSecret sets the X-Ingest-Secret header for Ingest.
func WithIngestSecret(secret string) Option {
	return func(c *Client) {
		c.ingestSecret = secret
	}
}

// WithCuratorSecret sets the X-Curator-Secret header for curator calls.
func WithCuratorSecret(secret string) Option {
	return func(c *Client) {
		c.curatorSecret = secret
	}
}

// WithRaterID sets a stable X-Rater-Id for rating calls. The server honours
// it only alongside the proxy secret set by WithRaterProxySecret.
func WithRaterID(id string) Option {
	return func(c *Client) {
		c.raterID = id
	}
}

// WithRaterProxySecret sets X-Rater-Proxy-Secret for rating calls.
func WithRaterProxySecret(secret string) Option {
	return func(c *Client) {
		c.raterProxySecret = secret
	}
}

// WithRetry sets the Fibonacci backoff base and the retry cap for batch
// submission. Zero retries disables retrying.
func WithRetry(base time.Duration, maxRetries uint64) Option {
	return func(c *Client) {
		if base > 0 {
			c.retryBase = base
		}
		c.maxRetries = maxRetries
	}
}
