package recorder

import (
	"sbwatch/internal/model"
	"sbwatch/internal/sweep"
)

// GateTrace is one diagnostic row per evaluated bar: OHLCV, window
// membership, per-source sweep booleans and the live qualifier state.
type GateTrace struct {
	Date       string
	Bar        model.Bar
	Gates      sweep.Vector
	ShortState string
	LongState  string
}

// Recorder persists gate traces and fired signals for later analysis.
type Recorder interface {
	RecordGate(row GateTrace) error
	RecordSignal(date string, c model.EntryCandidate) error
	Close() error
}

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordGate(_ GateTrace) error                        { return nil }
func (n *NoopRecorder) RecordSignal(_ string, _ model.EntryCandidate) error { return nil }
func (n *NoopRecorder) Close() error                                        { return nil }
