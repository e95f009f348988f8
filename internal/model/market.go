package model

import "time"

// Observation is a single raw price update from the feed.
// Immutable once received; the bar aggregator is its only consumer.
type Observation struct {
	Time   time.Time
	Price  float64
	Volume float64
}

// Bar represents a single OHLCV bar. While Finalized is false the bar is
// still open: High/Low move monotonically toward the observed extremes and
// Close tracks the latest observation.
type Bar struct {
	Start     time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Finalized bool
}
