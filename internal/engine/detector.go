package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mode selects between a read-only report and a report with retention
// decisions attached. The engine never deletes anything in either mode.
type Mode string

const (
	ModeDetect Mode = "detect"
	ModeRemove Mode = "remove"
)

// DefaultThreshold matches the original tool's similarity default.
const DefaultThreshold = 0.95

const cacheTTL = 24 * time.Hour

// ImageFetcher retrieves raw image bytes for a record. Implementations
// report failures as FetchError so the run can classify them per record.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache is an optional, caller-supplied fingerprint cache. Errors from the
// cache are never fatal: a failed Get falls back to fetch+compute and a
// failed Set is dropped.
type Cache interface {
	Get(ctx context.Context, key string) (Fingerprint, bool, error)
	Set(ctx context.Context, key string, fp Fingerprint, ttl time.Duration) error
}

// Options configure a single detection run.
type Options struct {
	Mode      Mode
	Threshold float64 // similarity in (0, 1]; 0 means DefaultThreshold
	Policy    Policy  // required for ModeRemove; empty means DefaultPolicy
	Workers   int     // concurrent fetch+hash workers; 0 means GOMAXPROCS
}

// Detector drives one batch: fingerprint every record concurrently, group
// exact duplicates, find near duplicates in the remainder, and in remove
// mode decide retention for every group. Each Run is independent; the
// detector holds no state between runs.
type Detector struct {
	fetcher  ImageFetcher
	cache    Cache
	observer Observer
}

// NewDetector constructs a detector. cache and observer may be nil.
func NewDetector(fetcher ImageFetcher, cache Cache, observer Observer) *Detector {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Detector{fetcher: fetcher, cache: cache, observer: observer}
}

// Run executes one detection pass over a snapshot of records.
//
// Configuration errors (bad threshold, unknown policy) abort before any
// fetch work. Per-record failures never abort the batch: the record is
// excluded and the failure lands in the result's Errors list.
func (d *Detector) Run(ctx context.Context, records []Record, opts Options) (*DetectionResult, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	// NaN compares false against everything, so it must be rejected
	// explicitly or it would sail through the range check.
	if math.IsNaN(opts.Threshold) || opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, opts.Threshold)
	}
	if opts.Mode == "" {
		opts.Mode = ModeDetect
	}
	if opts.Mode == ModeRemove {
		if opts.Policy == "" {
			opts.Policy = DefaultPolicy
		}
		if _, err := ParsePolicy(string(opts.Policy)); err != nil {
			return nil, err
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	hashed, recordErrs := d.fingerprintAll(ctx, records, opts.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &DetectionResult{
		Mode:      opts.Mode,
		Threshold: opts.Threshold,
		Processed: len(hashed),
		Failed:    len(recordErrs),
		Errors:    recordErrs,
	}
	for _, re := range recordErrs {
		d.observer.RecordFailed(re.RecordID, re.Err)
	}

	exact, remainder := buildExactGroups(hashed)
	result.ExactGroups = exact
	result.NearGroups = findNearDuplicates(remainder, opts.Threshold)
	for _, g := range result.ExactGroups {
		d.observer.GroupFound(g.Kind, len(g.Members))
	}
	for _, g := range result.NearGroups {
		d.observer.GroupFound(g.Kind, len(g.Members))
	}

	if opts.Mode == ModeRemove {
		for _, g := range append(append([]DuplicateGroup{}, result.ExactGroups...), result.NearGroups...) {
			decision, err := Decide(g, opts.Policy)
			if err != nil {
				return nil, err
			}
			result.Decisions = append(result.Decisions, decision)
		}
	}

	d.observer.RunCompleted(result)
	return result, nil
}

// fingerprintAll fans fetch+hash work out over a bounded worker pool and
// joins on a barrier before grouping. Each slot is written by exactly one
// goroutine, so no locking is needed and input order is preserved.
func (d *Detector) fingerprintAll(ctx context.Context, records []Record, workers int) ([]fingerprinted, []RecordError) {
	type slot struct {
		fp  Fingerprint
		err error
	}
	slots := make([]slot, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			fp, err := d.fingerprintRecord(gctx, rec)
			slots[i] = slot{fp: fp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var hashed []fingerprinted
	var errs []RecordError
	for i, s := range slots {
		if s.err != nil {
			errs = append(errs, RecordError{
				RecordID: records[i].ID,
				Err:      s.err,
				Message:  s.err.Error(),
			})
			continue
		}
		hashed = append(hashed, fingerprinted{record: records[i], fingerprint: s.fp})
	}
	return hashed, errs
}

func (d *Detector) fingerprintRecord(ctx context.Context, rec Record) (Fingerprint, error) {
	key := cacheKey(rec)
	if d.cache != nil {
		if fp, ok, err := d.cache.Get(ctx, key); err == nil && ok {
			return fp, nil
		}
	}

	data, err := d.fetcher.Fetch(ctx, rec.ImageURL)
	if err != nil {
		return 0, err
	}
	fp, err := ComputeFingerprint(data)
	if err != nil {
		return 0, err
	}

	if d.cache != nil {
		_ = d.cache.Set(ctx, key, fp, cacheTTL)
	}
	return fp, nil
}

// cacheKey binds a cached fingerprint to both the record and its current
// image URL, so a record whose image changes is re-fingerprinted.
func cacheKey(rec Record) string {
	sum := sha1.Sum([]byte(rec.ImageURL))
	return "fphash:" + rec.ID + ":" + hex.EncodeToString(sum[:])
}
