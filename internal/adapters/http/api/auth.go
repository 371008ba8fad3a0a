package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

const (
	ingestSecretHeader  = "X-Ingest-Secret"
	curatorSecretHeader = "X-Curator-Secret"
	raterIDHeader       = "X-Rater-Id"
	raterProxyHeader    = "X-Rater-Proxy-Secret"
)

// secretMatches compares in constant time. An empty expected secret matches nothing.
func secretMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// RequireSecret rejects requests whose header does not carry secret.
func RequireSecret(header, secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !secretMatches(secret, r.Header.Get(header)) {
			writeFailure(w, ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

// raterIdentity is the caller's raw identity, hashed before storage. The
// X-Rater-Id header counts only when X-Rater-Proxy-Secret matches proxySecret;
// otherwise it is the client address joined with the User-Agent.
func raterIdentity(r *http.Request, proxySecret string) string {
	if secretMatches(proxySecret, r.Header.Get(raterProxyHeader)) {
		if id := strings.TrimSpace(r.Header.Get(raterIDHeader)); id != "" {
			return id
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host + "|" + r.UserAgent()
}
