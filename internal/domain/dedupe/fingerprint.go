package dedupe

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/minio/sha256-simd"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/trustgate/internal/domain/model"
)

// Fingerprint returns the dedup key of an item: normalised title, UTC
// occurrence day and normalised location, hashed.
func Fingerprint(item model.CandidateItem) string {
	day := ""
	if item.OccurrenceDate != nil {
		day = item.OccurrenceDate.UTC().Format(time.DateOnly)
	}
	key := Normalize(item.Title) + "|" + day + "|" + Normalize(item.Location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Normalize folds s for comparison: accents stripped, lowercased, runs of
// punctuation and whitespace collapsed to one space.
func Normalize(s string) string {
	// Transformers keep state, so build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
