package api

import "github.com/okian/trustgate/pkg/logger"

const defaultMaxBodyBytes = 8 << 20

type settings struct {
	ingestSecret     string
	curatorSecret    string
	raterProxySecret string
	maxBodyBytes     int64
	logger           logger.Logger
}

// Option configures a Server.
type Option func(*settings)

// WithIngestSecret sets the shared secret for POST /ingest. Without one every
// ingestion request is rejected.
func WithIngestSecret(secret string) Option {
	return func(s *settings) {
		s.ingestSecret = secret
	}
}

// WithCuratorSecret sets the shared secret for the curator routes.
func WithCuratorSecret(secret string) Option {
	return func(s *settings) {
		s.curatorSecret = secret
	}
}

// WithRaterProxySecret sets the secret a trusted proxy sends in
// X-Rater-Proxy-Secret to vouch for X-Rater-Id. Without one the header is
// ignored and raters are told apart by address and User-Agent.
func WithRaterProxySecret(secret string) Option {
	return func(s *settings) {
		s.raterProxySecret = secret
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
