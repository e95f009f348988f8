// Package bars folds raw price observations into minute bars. Exactly one
// bucket is open at a time; downstream logic evaluates against the live,
// still-open bar instead of waiting for the minute to close.
package bars

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sbwatch/internal/model"
)

var (
	// ErrStaleObservation marks an observation whose timestamp precedes the
	// current bucket. Stale observations are dropped; they never mutate a
	// finalized bar.
	ErrStaleObservation = errors.New("stale observation")

	// ErrInvalidObservation marks a NaN/Inf/non-positive price or a negative
	// volume. Invalid observations never corrupt a bar's extremes.
	ErrInvalidObservation = errors.New("invalid observation")
)

// Snapshot is the result of ingesting one observation. Finalized is non-nil
// only when the observation opened a new bucket and closed the previous one.
// Current is a copy of the in-progress bar after the update.
type Snapshot struct {
	Finalized *model.Bar
	Current   model.Bar
}

// Aggregator maintains the single open bucket.
type Aggregator struct {
	period time.Duration
	cur    *model.Bar
}

// New creates an aggregator with the given bar period (one minute in
// production).
func New(period time.Duration) *Aggregator {
	if period <= 0 {
		period = time.Minute
	}
	return &Aggregator{period: period}
}

// Ingest folds one observation into the open bucket.
//
// An observation in a new bucket finalizes the previous bar and opens a fresh
// one at the observation's own truncated timestamp; gaps are never backfilled
// with synthetic bars. An observation inside the current bucket updates
// high/low/close immediately and volume cumulatively.
func (a *Aggregator) Ingest(o model.Observation) (Snapshot, error) {
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price <= 0 || o.Volume < 0 {
		return Snapshot{}, fmt.Errorf("price=%v volume=%v: %w", o.Price, o.Volume, ErrInvalidObservation)
	}

	bucket := o.Time.Truncate(a.period)

	if a.cur == nil {
		a.cur = openBar(bucket, o)
		return Snapshot{Current: *a.cur}, nil
	}

	if o.Time.Before(a.cur.Start) {
		return Snapshot{Current: *a.cur}, fmt.Errorf("observation at %s before bucket %s: %w",
			o.Time.Format(time.RFC3339), a.cur.Start.Format(time.RFC3339), ErrStaleObservation)
	}

	if bucket.After(a.cur.Start) {
		done := *a.cur
		done.Finalized = true
		a.cur = openBar(bucket, o)
		return Snapshot{Finalized: &done, Current: *a.cur}, nil
	}

	if o.Price > a.cur.High {
		a.cur.High = o.Price
	}
	if o.Price < a.cur.Low {
		a.cur.Low = o.Price
	}
	a.cur.Close = o.Price
	a.cur.Volume += o.Volume
	return Snapshot{Current: *a.cur}, nil
}

// Flush finalizes and returns the open bar, if any. Used at window teardown
// so the trailing partial bar still reaches the trace sink.
func (a *Aggregator) Flush() *model.Bar {
	if a.cur == nil {
		return nil
	}
	done := *a.cur
	done.Finalized = true
	a.cur = nil
	return &done
}

// Current returns a copy of the in-progress bar, if one is open.
func (a *Aggregator) Current() (model.Bar, bool) {
	if a.cur == nil {
		return model.Bar{}, false
	}
	return *a.cur, true
}

func openBar(start time.Time, o model.Observation) *model.Bar {
	return &model.Bar{
		Start:  start,
		Open:   o.Price,
		High:   o.Price,
		Low:    o.Price,
		Close:  o.Price,
		Volume: o.Volume,
	}
}
