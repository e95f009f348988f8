// Package qualify turns sweep gates plus a confirmation rule into at most
// one trade signal per side per trading window.
package qualify

import (
	"time"

	"sbwatch/internal/model"
	"sbwatch/internal/sweep"
)

// State is the per-side lifecycle: IDLE -> ARMED -> FIRED.
type State int

const (
	Idle State = iota
	Armed
	Fired
)

func (s State) String() string {
	switch s {
	case Armed:
		return "ARMED"
	case Fired:
		return "FIRED"
	default:
		return "IDLE"
	}
}

// Config carries the entry parameters.
type Config struct {
	// SLBuffer is added beyond the sweep extreme when placing the stop.
	SLBuffer float64
	// TPRiskReward sets the take-profit as a multiple of the entry-to-stop
	// distance. Zero leaves the take-profit absent.
	TPRiskReward float64
}

type sideState struct {
	state   State
	gate    sweep.Gate
	extreme float64   // running sweep extreme while armed
	armedAt time.Time // start of the arming bar
}

// Qualifier tracks both sides independently within one window.
type Qualifier struct {
	cfg   Config
	short sideState
	long  sideState
}

func New(cfg Config) *Qualifier {
	return &Qualifier{cfg: cfg}
}

// Reset returns both sides to IDLE at window start. An armed-but-unconfirmed
// state never carries into the next window.
func (q *Qualifier) Reset() {
	q.short = sideState{}
	q.long = sideState{}
}

// CloseWindow disarms any side that never confirmed. FIRED stays FIRED until
// Reset so late evaluations cannot re-fire.
func (q *Qualifier) CloseWindow() {
	if q.short.state == Armed {
		q.short = sideState{}
	}
	if q.long.state == Armed {
		q.long = sideState{}
	}
}

// States returns the live per-side states (short, long).
func (q *Qualifier) States() (State, State) {
	return q.short.state, q.long.state
}

// FiredSides reports which sides have fired this window.
func (q *Qualifier) FiredSides() (short, long bool) {
	return q.short.state == Fired, q.long.state == Fired
}

// Evaluate advances the state machine for one bar against the accumulated
// gate vector. SHORT arming is evaluated before LONG so replay and live agree
// bar-for-bar even when a wide-range bar sweeps both sides at once.
//
// Arming happens on any in-window evaluation, including an in-progress bar:
// gates depend only on highs/lows, which move monotonically. Confirmation,
// a close back through the swept level, is checked on finalized bars only;
// an open bar's close still floats.
func (q *Qualifier) Evaluate(bar model.Bar, gates sweep.Vector, lv *model.Levels) []model.EntryCandidate {
	if !gates.InWindow {
		q.CloseWindow()
		return nil
	}

	var out []model.EntryCandidate
	if c := q.evalShort(bar, gates, lv); c != nil {
		out = append(out, *c)
	}
	if c := q.evalLong(bar, gates, lv); c != nil {
		out = append(out, *c)
	}
	return out
}

func (q *Qualifier) evalShort(bar model.Bar, gates sweep.Vector, lv *model.Levels) *model.EntryCandidate {
	s := &q.short
	switch s.state {
	case Fired:
		return nil
	case Idle:
		gate, ok := gates.HighGate(lv)
		if !ok {
			return nil
		}
		s.state = Armed
		s.gate = gate
		s.extreme = bar.High
		s.armedAt = bar.Start
		return nil
	}

	// Armed: keep tracking the sweep excursion and upgrade to a
	// higher-priority gate if one sweeps later in the window.
	if bar.High > s.extreme {
		s.extreme = bar.High
	}
	if gate, ok := gates.HighGate(lv); ok {
		s.gate = gate
	}
	if !bar.Finalized || !bar.Start.After(s.armedAt) || bar.Close >= s.gate.Level {
		return nil
	}

	s.state = Fired
	entry := bar.Close
	sl := s.extreme + q.cfg.SLBuffer
	c := &model.EntryCandidate{
		Side:       model.Short,
		Entry:      entry,
		StopLoss:   sl,
		SweepLabel: s.gate.Label,
		Time:       bar.Start,
	}
	if q.cfg.TPRiskReward > 0 {
		tp := entry - (sl-entry)*q.cfg.TPRiskReward
		c.TakeProfit = &tp
	}
	return c
}

func (q *Qualifier) evalLong(bar model.Bar, gates sweep.Vector, lv *model.Levels) *model.EntryCandidate {
	s := &q.long
	switch s.state {
	case Fired:
		return nil
	case Idle:
		gate, ok := gates.LowGate(lv)
		if !ok {
			return nil
		}
		s.state = Armed
		s.gate = gate
		s.extreme = bar.Low
		s.armedAt = bar.Start
		return nil
	}

	if bar.Low < s.extreme {
		s.extreme = bar.Low
	}
	if gate, ok := gates.LowGate(lv); ok {
		s.gate = gate
	}
	if !bar.Finalized || !bar.Start.After(s.armedAt) || bar.Close <= s.gate.Level {
		return nil
	}

	s.state = Fired
	entry := bar.Close
	sl := s.extreme - q.cfg.SLBuffer
	c := &model.EntryCandidate{
		Side:       model.Long,
		Entry:      entry,
		StopLoss:   sl,
		SweepLabel: s.gate.Label,
		Time:       bar.Start,
	}
	if q.cfg.TPRiskReward > 0 {
		tp := entry + (entry-sl)*q.cfg.TPRiskReward
		c.TakeProfit = &tp
	}
	return c
}
