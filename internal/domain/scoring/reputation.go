package scoring

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"

	"github.com/okian/trustgate/internal/domain/model"
)

// Reputation assigns the static source score of a new entry: a configured
// host (or parent domain) wins, then the submitter kind, then the fallback.
type Reputation struct {
	hosts      map[string]float64
	submitters map[string]float64
	fallback   float64
}

// NewReputation creates a Reputation. Host keys are canonicalised.
func NewReputation(hosts, submitters map[string]float64, fallback float64) *Reputation {
	r := &Reputation{
		hosts:      make(map[string]float64, len(hosts)),
		submitters: make(map[string]float64, len(submitters)),
		fallback:   Clamp(fallback),
	}
	for h, v := range hosts {
		if c := CanonicalHost("http://" + h); c != "" {
			r.hosts[c] = Clamp(v)
		}
	}
	for k, v := range submitters {
		r.submitters[strings.ToLower(k)] = Clamp(v)
	}
	return r
}

// Score returns the source score for item.
func (r *Reputation) Score(item model.CandidateItem) float64 {
	for h := CanonicalHost(item.SourceURL); h != ""; {
		if v, ok := r.hosts[h]; ok {
			return v
		}
		dot := strings.IndexByte(h, '.')
		if dot < 0 {
			break
		}
		h = h[dot+1:]
	}
	if v, ok := r.submitters[item.SubmitterKind()]; ok {
		return v
	}
	return r.fallback
}

// CanonicalHost returns the lowercased host of raw without "www." or port,
// or "" if raw is not an absolute URL.
func CanonicalHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveWWW)
	if err != nil {
		return ""
	}
	u, err := url.Parse(clean)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
