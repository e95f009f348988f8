// Package sweep declares which reference levels a bar has traded through.
// Evaluation is stateless per call; the engine driver accumulates gate
// history across the window so a level, once swept, stays swept even if
// price retraces.
package sweep

import (
	"time"

	"sbwatch/internal/config"
	"sbwatch/internal/model"
)

// Vector is the per-evaluation snapshot of gate booleans.
type Vector struct {
	InWindow   bool
	BoxHigh    bool
	BoxLow     bool
	AsiaHigh   bool
	AsiaLow    bool
	LondonHigh bool
	LondonLow  bool
	PDH        bool
	PDL        bool
}

// Gate names the sweep source that opened a gate together with its price.
type Gate struct {
	Label string
	Level float64
}

// Evaluator holds the static configuration a gate evaluation needs.
type Evaluator struct {
	toggles config.SweepToggles
	window  config.Window
	loc     *time.Location
}

func NewEvaluator(toggles config.SweepToggles, window config.Window, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{toggles: toggles, window: window, loc: loc}
}

// Evaluate computes the gate vector for one bar (finalized or in-progress).
// A high-side level L is swept when bar.High > L; a low-side level when
// bar.Low < L. Disabled sources never set their bit. InWindow is true iff the
// bar's start timestamp falls within the configured [start,end) window.
func (e *Evaluator) Evaluate(b model.Bar, lv *model.Levels) Vector {
	v := Vector{InWindow: e.window.Contains(b.Start, e.loc)}
	if lv == nil {
		return v
	}
	if e.toggles.Box && lv.Box != nil {
		v.BoxHigh = b.High > lv.Box.High
		v.BoxLow = b.Low < lv.Box.Low
	}
	if e.toggles.Asia && lv.Asia != nil {
		v.AsiaHigh = b.High > lv.Asia.High
		v.AsiaLow = b.Low < lv.Asia.Low
	}
	if e.toggles.London && lv.London != nil {
		v.LondonHigh = b.High > lv.London.High
		v.LondonLow = b.Low < lv.London.Low
	}
	if e.toggles.PriorDay {
		if lv.PDH != nil {
			v.PDH = b.High > *lv.PDH
		}
		if lv.PDL != nil {
			v.PDL = b.Low < *lv.PDL
		}
	}
	return v
}

// Merge folds a fresh evaluation into accumulated window state: sweep bits
// are monotonic non-decreasing, window membership always reflects the latest
// evaluation.
func (v *Vector) Merge(next Vector) {
	v.InWindow = next.InWindow
	v.BoxHigh = v.BoxHigh || next.BoxHigh
	v.BoxLow = v.BoxLow || next.BoxLow
	v.AsiaHigh = v.AsiaHigh || next.AsiaHigh
	v.AsiaLow = v.AsiaLow || next.AsiaLow
	v.LondonHigh = v.LondonHigh || next.LondonHigh
	v.LondonLow = v.LondonLow || next.LondonLow
	v.PDH = v.PDH || next.PDH
	v.PDL = v.PDL || next.PDL
}

// HighGate returns the highest-priority swept high-side gate
// (box > asia > london > prior day), if any.
func (v Vector) HighGate(lv *model.Levels) (Gate, bool) {
	switch {
	case v.BoxHigh:
		return Gate{Label: model.LabelBox, Level: lv.Box.High}, true
	case v.AsiaHigh:
		return Gate{Label: model.LabelAsia, Level: lv.Asia.High}, true
	case v.LondonHigh:
		return Gate{Label: model.LabelLondon, Level: lv.London.High}, true
	case v.PDH:
		return Gate{Label: model.LabelPDH, Level: *lv.PDH}, true
	}
	return Gate{}, false
}

// LowGate returns the highest-priority swept low-side gate, if any.
func (v Vector) LowGate(lv *model.Levels) (Gate, bool) {
	switch {
	case v.BoxLow:
		return Gate{Label: model.LabelBox, Level: lv.Box.Low}, true
	case v.AsiaLow:
		return Gate{Label: model.LabelAsia, Level: lv.Asia.Low}, true
	case v.LondonLow:
		return Gate{Label: model.LabelLondon, Level: lv.London.Low}, true
	case v.PDL:
		return Gate{Label: model.LabelPDL, Level: *lv.PDL}, true
	}
	return Gate{}, false
}

// SweepLabel identifies the primary level swept so far this window under the
// configured tie-break order. High-side gates win over low-side gates of the
// same source. Empty when nothing has swept.
func (v Vector) SweepLabel(lv *model.Levels) string {
	hi, hasHi := v.HighGate(lv)
	lo, hasLo := v.LowGate(lv)
	switch {
	case hasHi && hasLo:
		if rank(lo.Label) < rank(hi.Label) {
			return lo.Label
		}
		return hi.Label
	case hasHi:
		return hi.Label
	case hasLo:
		return lo.Label
	}
	return ""
}

func rank(label string) int {
	switch label {
	case model.LabelBox:
		return 0
	case model.LabelAsia:
		return 1
	case model.LabelLondon:
		return 2
	default:
		return 3
	}
}
