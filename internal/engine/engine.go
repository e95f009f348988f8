// Package engine orchestrates aggregation, gate evaluation and entry
// qualification per incoming observation. All EngineState mutations are
// serialized behind one mutex; two observations interleaving out of
// timestamp order would corrupt the monotonic gate history.
package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"sbwatch/internal/bars"
	"sbwatch/internal/config"
	"sbwatch/internal/metrics"
	"sbwatch/internal/model"
	"sbwatch/internal/qualify"
	"sbwatch/internal/recorder"
	"sbwatch/internal/sweep"
)

// Notifier receives each fired entry candidate exactly once. Implementations
// (webhook, trace writer, test spy) are interchangeable; delivery failures
// are the notifier's own problem and never re-arm the qualifier.
type Notifier interface {
	PostEntry(c model.EntryCandidate) error
}

// Snapshot is an immutable view of engine state handed out after each
// observation. Health probes read snapshots, never live references.
type Snapshot struct {
	Date          string
	LastFinalized *model.Bar
	InProgress    *model.Bar
	Gates         sweep.Vector
	ShortState    qualify.State
	LongState     qualify.State
	SweepLabel    string
}

// Engine is the single owner of per-window mutable state.
type Engine struct {
	mu   sync.Mutex
	agg  *bars.Aggregator
	eval *sweep.Evaluator
	qual *qualify.Qualifier

	levels    *model.Levels
	date      string
	gates     sweep.Vector
	lastFinal *model.Bar
	last      Snapshot

	rec      recorder.Recorder
	notifyCh chan model.EntryCandidate
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithRecorder attaches a gate-trace/signal recorder.
func WithRecorder(r recorder.Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// New builds an engine and starts the notification worker. The worker keeps
// a slow or failing notifier from ever stalling observation processing.
func New(cfg *config.Config, lv *model.Levels, n Notifier, opts ...Option) *Engine {
	e := &Engine{
		agg:      bars.New(time.Minute),
		eval:     sweep.NewEvaluator(cfg.SweepSources, cfg.EntryWindow, cfg.Location),
		qual:     qualify.New(qualify.Config{SLBuffer: *cfg.Entry.SLBuffer, TPRiskReward: cfg.Entry.TPRiskReward}),
		levels:   lv,
		rec:      recorder.NewNoopRecorder(),
		notifyCh: make(chan model.EntryCandidate, 16),
		done:     make(chan struct{}),
	}
	if lv != nil {
		e.date = lv.Date
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.dispatch(n)
	return e
}

// OnObservation folds one raw price update into the open bar and runs a
// fresh gate evaluation against the live, still-open bar. If the observation
// rolled the minute over, the finalized bar is fully evaluated first,
// including confirmation.
func (e *Engine) OnObservation(o model.Observation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.agg.Ingest(o)
	if err != nil {
		switch {
		case errors.Is(err, bars.ErrStaleObservation):
			metrics.StaleDropped.Inc()
			log.Printf("[WARN] dropped observation: %v", err)
		case errors.Is(err, bars.ErrInvalidObservation):
			metrics.InvalidDropped.Inc()
			log.Printf("[WARN] dropped observation: %v", err)
		}
		return err
	}
	metrics.ObservationsTotal.Inc()

	if snap.Finalized != nil {
		metrics.BarsFinalized.Inc()
		e.evaluateLocked(*snap.Finalized)
	}
	e.evaluateLocked(snap.Current)
	return nil
}

// OnBar is the pure replay entry point: a historical driver feeds
// pre-finalized bars and reaches decisions identical to the live path.
func (e *Engine) OnBar(b model.Bar) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b.Finalized = true
	metrics.BarsFinalized.Inc()
	e.evaluateLocked(b)
}

// ResetWindow installs the new day's levels and returns per-window state to
// its initial value. The whole Levels object is replaced atomically; gate
// evaluation never observes a torn read. Called on the external calendar
// boundary event.
func (e *Engine) ResetWindow(lv *model.Levels) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if trailing := e.agg.Flush(); trailing != nil {
		e.recordTrace(*trailing)
	}
	e.levels = lv
	e.date = ""
	if lv != nil {
		e.date = lv.Date
	}
	e.gates = sweep.Vector{}
	e.qual.Reset()
	e.lastFinal = nil
	e.last = Snapshot{Date: e.date}
	log.Printf("[INFO] window reset: date=%s levels_empty=%v", e.date, lv.Empty())
}

// Snapshot returns the state view taken after the most recent observation.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// FiredSides reports which sides have fired in the current window.
func (e *Engine) FiredSides() (short, long bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.qual.FiredSides()
}

// Close stops the notification worker after draining queued candidates.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.notifyCh)
		<-e.done
	})
}

// evaluateLocked runs one bar through gates and qualification. Sweep bits
// accumulate only while the bar is inside the window, so a pre-window sweep
// can never arm the first in-window bar.
func (e *Engine) evaluateLocked(b model.Bar) {
	v := e.eval.Evaluate(b, e.levels)
	if v.InWindow {
		e.gates.Merge(v)
	} else {
		e.gates.InWindow = false
	}

	for _, c := range e.qual.Evaluate(b, e.gates, e.levels) {
		metrics.SignalsFired.WithLabelValues(string(c.Side)).Inc()
		log.Printf("[INFO] signal fired: side=%s entry=%.2f sl=%.2f label=%s bar=%s",
			c.Side, c.Entry, c.StopLoss, c.SweepLabel, c.Time.Format("15:04"))
		if err := e.rec.RecordSignal(e.date, c); err != nil {
			log.Printf("[ERROR] record signal: %v", err)
		}
		select {
		case e.notifyCh <- c:
		default:
			metrics.NotifyFailures.Inc()
			log.Printf("[ERROR] notification queue full, dropping delivery (signal state kept)")
		}
	}

	shortState, longState := e.qual.States()
	metrics.SetQualifierState(string(model.Short), int(shortState))
	metrics.SetQualifierState(string(model.Long), int(longState))

	if b.Finalized {
		e.recordTrace(b)
	}

	bc := b
	if b.Finalized {
		e.lastFinal = &bc
	}
	e.last = Snapshot{
		Date:          e.date,
		LastFinalized: e.lastFinal,
		Gates:         e.gates,
		ShortState:    shortState,
		LongState:     longState,
		SweepLabel:    e.gates.SweepLabel(e.levels),
	}
	if !b.Finalized {
		e.last.InProgress = &bc
	}
}

func (e *Engine) recordTrace(b model.Bar) {
	shortState, longState := e.qual.States()
	row := recorder.GateTrace{
		Date:       e.date,
		Bar:        b,
		Gates:      e.gates,
		ShortState: shortState.String(),
		LongState:  longState.String(),
	}
	if err := e.rec.RecordGate(row); err != nil {
		log.Printf("[ERROR] record gate trace: %v", err)
	}
}

// dispatch delivers fired candidates to the notifier off the ingestion path.
// A failed delivery is counted and logged; the FIRED transition is durable
// and is never retried by re-arming.
func (e *Engine) dispatch(n Notifier) {
	defer close(e.done)
	for c := range e.notifyCh {
		if n == nil {
			continue
		}
		if err := n.PostEntry(c); err != nil {
			metrics.NotifyFailures.Inc()
			log.Printf("[ERROR] notify %s signal: %v", c.Side, err)
		}
	}
}
