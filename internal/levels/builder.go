// Package levels derives a trading day's reference levels from historical
// minute bars and persists them between the level-build job and the live
// window.
package levels

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sbwatch/internal/config"
	"sbwatch/internal/model"
)

// ErrInsufficientData marks a level window with zero bars. The affected
// sweep source is disabled for the day rather than halting the engine.
var ErrInsufficientData = errors.New("insufficient data")

// Input carries the historical bars for each level window. Slices may be
// empty when a source is disabled or its fetch failed.
type Input struct {
	PriorDay []model.Bar
	Asia     []model.Bar
	London   []model.Bar
	Box      []model.Bar
}

// Meta identifies the instrument the levels belong to.
type Meta struct {
	Symbol  string
	Dataset string
	Schema  string
}

// Build computes the day's reference levels. Each named range is
// {max high, min low} over its window. Sources with no bars are reported via
// a joined ErrInsufficientData error and left nil in the result; the caller
// decides whether that is fatal. The returned Levels value is complete and
// immutable; partial construction is never observable.
func Build(in Input, date time.Time, toggles config.SweepToggles, box config.Window, meta Meta) (*model.Levels, error) {
	lv := &model.Levels{
		Date:    date.Format("2006-01-02"),
		Symbol:  meta.Symbol,
		Dataset: meta.Dataset,
		Schema:  meta.Schema,
	}

	var errs []error

	if toggles.Box {
		if hi, lo, err := rangeOf(in.Box); err != nil {
			errs = append(errs, fmt.Errorf("box window: %w", err))
		} else {
			lv.Box = &model.BoxLevel{High: hi, Low: lo, Start: box.Start.String(), End: box.End.String()}
		}
	}
	if toggles.PriorDay {
		if hi, lo, err := rangeOf(in.PriorDay); err != nil {
			errs = append(errs, fmt.Errorf("prior day window: %w", err))
		} else {
			pdh, pdl := hi, lo
			lv.PDH = &pdh
			lv.PDL = &pdl
		}
	}
	if toggles.Asia {
		if hi, lo, err := rangeOf(in.Asia); err != nil {
			errs = append(errs, fmt.Errorf("asia window: %w", err))
		} else {
			lv.Asia = &model.RangeLevel{High: hi, Low: lo}
		}
	}
	if toggles.London {
		if hi, lo, err := rangeOf(in.London); err != nil {
			errs = append(errs, fmt.Errorf("london window: %w", err))
		} else {
			lv.London = &model.RangeLevel{High: hi, Low: lo}
		}
	}

	return lv, errors.Join(errs...)
}

// rangeOf scans the bars and returns the window high and low.
func rangeOf(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrInsufficientData
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}
