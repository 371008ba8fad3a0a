// Package dedupe drops candidate items already seen within a batch or within
// the recent-fingerprint window.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/trustgate/internal/domain/model"
)

// ErrCache wraps failures of the fingerprint cache.
var ErrCache = errors.New("fingerprint cache unavailable")

// Kept is an item that survived deduplication.
type Kept struct {
	Index       int // position in the submitted batch
	Fingerprint string
	Item        model.CandidateItem
}

// Result is the outcome of one Dedupe pass. Indexes refer to the batch.
type Result struct {
	Kept       []Kept
	Duplicates []int
	Malformed  []int
}

// Skipped is the number of items dropped.
func (r Result) Skipped() int {
	return len(r.Duplicates) + len(r.Malformed)
}

// Deduplicator is the single-writer pre-pass in front of evaluation.
type Deduplicator struct {
	mu    sync.Mutex
	cache Cache
}

// New creates a Deduplicator over cache.
func New(cache Cache) *Deduplicator {
	return &Deduplicator{cache: cache}
}

// Dedupe keeps the first item per fingerprint, drops fingerprints already in
// the window, and drops items without a title. Kept fingerprints are recorded
// in the window. If the cache fails, fingerprints recorded by this call are
// released and the error is returned so nothing is processed twice.
func (d *Deduplicator) Dedupe(ctx context.Context, batch []model.CandidateItem) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result
	inBatch := make(map[string]struct{}, len(batch))
	for i, item := range batch {
		// A title with nothing to fingerprint would collide with every other such title.
		if Normalize(item.Title) == "" {
			res.Malformed = append(res.Malformed, i)
			continue
		}
		fp := Fingerprint(item)
		if _, dup := inBatch[fp]; dup {
			res.Duplicates = append(res.Duplicates, i)
			continue
		}
		inBatch[fp] = struct{}{}

		seen, err := d.cache.SeenAndRecord(ctx, fp)
		if err != nil {
			d.release(ctx, res.Kept)
			return Result{}, fmt.Errorf("%w: %w", ErrCache, err)
		}
		if seen {
			res.Duplicates = append(res.Duplicates, i)
			continue
		}
		res.Kept = append(res.Kept, Kept{Index: i, Fingerprint: fp, Item: item})
	}
	return res, nil
}

// Forget releases a kept fingerprint whose processing did not complete, so a
// re-submission is not treated as a duplicate.
func (d *Deduplicator) Forget(ctx context.Context, fingerprint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.cache.Unrecord(ctx, fingerprint); err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}
	return nil
}

// Size returns the number of fingerprints in the window.
func (d *Deduplicator) Size() int64 {
	return d.cache.Size()
}

func (d *Deduplicator) release(ctx context.Context, kept []Kept) {
	ctx = context.WithoutCancel(ctx)
	for _, k := range kept {
		_ = d.cache.Unrecord(ctx, k.Fingerprint)
	}
}
