package model

import "time"

// Side identifies the direction of a trade signal.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sweep source labels, in tie-break priority order: box first, then the
// named session ranges, then the prior-day extremes.
const (
	LabelBox    = "BOX"
	LabelAsia   = "ASIA"
	LabelLondon = "LONDON"
	LabelPDH    = "PDH"
	LabelPDL    = "PDL"
)

// EntryCandidate is the one-shot output of the entry qualifier: at most one
// per side per trading window. TakeProfit is nil when no take-profit is
// configured.
type EntryCandidate struct {
	Side       Side
	Entry      float64
	StopLoss   float64
	TakeProfit *float64
	SweepLabel string
	Time       time.Time
}

// WhenMillis returns the candidate timestamp as integer epoch milliseconds,
// the unit used by the signal callback contract.
func (c EntryCandidate) WhenMillis() int64 {
	return c.Time.UnixMilli()
}
