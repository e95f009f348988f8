package model

// RangeLevel is a named high/low pair derived from a session window.
type RangeLevel struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// BoxLevel is the intraday box range plus the window it was built from.
type BoxLevel struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

// Levels holds one trading day's reference levels. A nil pointer means the
// source had no data (or is disabled) for the day and never contributes a
// sweep. Levels are immutable after construction; a rebuild replaces the
// whole object.
type Levels struct {
	Date    string      `json:"date"`
	Symbol  string      `json:"symbol"`
	Dataset string      `json:"dataset"`
	Schema  string      `json:"schema"`
	Box     *BoxLevel   `json:"box,omitempty"`
	PDH     *float64    `json:"pdh,omitempty"`
	PDL     *float64    `json:"pdl,omitempty"`
	Asia    *RangeLevel `json:"asia,omitempty"`
	London  *RangeLevel `json:"london,omitempty"`
}

// Empty reports whether no sweep source at all is available.
func (l *Levels) Empty() bool {
	if l == nil {
		return true
	}
	return l.Box == nil && l.PDH == nil && l.PDL == nil && l.Asia == nil && l.London == nil
}
