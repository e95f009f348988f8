package qualify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sbwatch/internal/config"
	"sbwatch/internal/model"
	"sbwatch/internal/sweep"
)

func f64(v float64) *float64 { return &v }

func testLevels() *model.Levels {
	return &model.Levels{
		Date: "2026-08-27",
		Box:  &model.BoxLevel{High: 25548.75, Low: 25420.75},
		PDH:  f64(25828.00),
		PDL:  f64(24999.00),
	}
}

// harness replays bars through an evaluator plus accumulated gate vector the
// same way the engine driver does.
type harness struct {
	eval  *sweep.Evaluator
	qual  *Qualifier
	lv    *model.Levels
	gates sweep.Vector
}

func newHarness(t *testing.T, cfg Config, lv *model.Levels) *harness {
	t.Helper()
	toggles := config.SweepToggles{Box: true, Asia: true, London: true, PriorDay: true}
	return &harness{
		eval: sweep.NewEvaluator(toggles, config.Window{Start: 600, End: 660}, time.UTC),
		qual: New(cfg),
		lv:   lv,
	}
}

func (h *harness) step(b model.Bar) []model.EntryCandidate {
	v := h.eval.Evaluate(b, h.lv)
	if v.InWindow {
		h.gates.Merge(v)
	} else {
		h.gates.InWindow = false
	}
	return h.qual.Evaluate(b, h.gates, h.lv)
}

func finalBar(hh, mm int, open, high, low, close float64) model.Bar {
	return model.Bar{
		Start:     time.Date(2026, 8, 27, hh, mm, 0, 0, time.UTC),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Finalized: true,
	}
}

func TestShortSweepAndConfirm(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0, TPRiskReward: 1.0}, testLevels())

	// 10:12 sweeps the box high but closes above it: arms, no fire.
	out := h.step(finalBar(10, 12, 25530, 25560, 25525, 25552))
	require.Empty(t, out)
	short, long := h.qual.States()
	require.Equal(t, Armed, short)
	require.Equal(t, Idle, long)

	// 10:13 closes back through the level: fires exactly one short.
	out = h.step(finalBar(10, 13, 25552, 25555, 25538, 25540))
	require.Len(t, out, 1)
	c := out[0]
	require.Equal(t, model.Short, c.Side)
	require.Equal(t, 25540.0, c.Entry)
	require.Equal(t, model.LabelBox, c.SweepLabel)
	// Stop sits above the running sweep extreme (25560) plus the buffer.
	require.Equal(t, 25565.0, c.StopLoss)
	require.NotNil(t, c.TakeProfit)
	require.Equal(t, 25540.0-25.0, *c.TakeProfit)
	require.Equal(t, time.Date(2026, 8, 27, 10, 13, 0, 0, time.UTC), c.Time)

	// 10:40 sweeps the PDH too; the side already fired, nothing more comes out.
	out = h.step(finalBar(10, 40, 25700, 25830, 25690, 25800))
	require.Empty(t, out)
	out = h.step(finalBar(10, 41, 25800, 25810, 25740, 25750))
	require.Empty(t, out)
	short, _ = h.qual.States()
	require.Equal(t, Fired, short)
}

func TestNoConfirmationSameBar(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	// Single bar that sweeps AND closes back through: arming and confirmation
	// must not happen on the same bar.
	out := h.step(finalBar(10, 12, 25530, 25560, 25525, 25540))
	require.Empty(t, out)
	short, _ := h.qual.States()
	require.Equal(t, Armed, short)

	// The next bar confirms.
	out = h.step(finalBar(10, 13, 25540, 25545, 25530, 25535))
	require.Len(t, out, 1)
}

func TestInProgressBarArmsButNeverConfirms(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	live := finalBar(10, 12, 25530, 25560, 25525, 25540)
	live.Finalized = false
	require.Empty(t, h.step(live))
	short, _ := h.qual.States()
	require.Equal(t, Armed, short, "in-progress bar may arm")

	// A later in-progress bar closing through the level still must not fire.
	live2 := finalBar(10, 13, 25540, 25545, 25530, 25535)
	live2.Finalized = false
	require.Empty(t, h.step(live2))

	// The finalized version of the same bar fires.
	require.Len(t, h.step(finalBar(10, 13, 25540, 25545, 25530, 25535)), 1)
}

func TestWindowCloseDisarms(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	require.Empty(t, h.step(finalBar(10, 58, 25530, 25560, 25525, 25552)))
	short, _ := h.qual.States()
	require.Equal(t, Armed, short)

	// 11:00 bar is outside the window: armed state clears, nothing fires even
	// though the close is back through the level.
	require.Empty(t, h.step(finalBar(11, 0, 25552, 25555, 25538, 25540)))
	short, long := h.qual.States()
	require.Equal(t, Idle, short)
	require.Equal(t, Idle, long)
	firedShort, firedLong := h.qual.FiredSides()
	require.False(t, firedShort)
	require.False(t, firedLong)
}

func TestFiredSurvivesWindowCloseUntilReset(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	h.step(finalBar(10, 12, 25530, 25560, 25525, 25552))
	require.Len(t, h.step(finalBar(10, 13, 25552, 25555, 25538, 25540)), 1)

	require.Empty(t, h.step(finalBar(11, 0, 25540, 25560, 25480, 25500)))
	firedShort, _ := h.qual.FiredSides()
	require.True(t, firedShort, "FIRED is terminal until the next window reset")

	h.qual.Reset()
	short, long := h.qual.States()
	require.Equal(t, Idle, short)
	require.Equal(t, Idle, long)
}

func TestLongSideSymmetric(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0, TPRiskReward: 2.0}, testLevels())

	// Sweep below the box low, close below: arm long.
	require.Empty(t, h.step(finalBar(10, 20, 25430, 25435, 25410, 25415)))
	_, long := h.qual.States()
	require.Equal(t, Armed, long)

	// Next bar drives lower intrabar (extends the extreme) then closes back
	// above the box low: fire.
	out := h.step(finalBar(10, 21, 25415, 25440, 25405, 25435))
	require.Len(t, out, 1)
	c := out[0]
	require.Equal(t, model.Long, c.Side)
	require.Equal(t, 25435.0, c.Entry)
	require.Equal(t, model.LabelBox, c.SweepLabel)
	require.Equal(t, 25400.0, c.StopLoss, "stop below the running low 25405 minus buffer")
	require.NotNil(t, c.TakeProfit)
	require.Equal(t, 25435.0+2*(25435.0-25400.0), *c.TakeProfit)
}

func TestBothSidesOneBar_ShortFirst(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	// Wide-range bar arms both sides at once.
	require.Empty(t, h.step(finalBar(10, 15, 25500, 25560, 25410, 25500)))
	short, long := h.qual.States()
	require.Equal(t, Armed, short)
	require.Equal(t, Armed, long)

	// A close inside the box confirms both; output order is short then long.
	out := h.step(finalBar(10, 16, 25500, 25510, 25490, 25500))
	require.Len(t, out, 2)
	require.Equal(t, model.Short, out[0].Side)
	require.Equal(t, model.Long, out[1].Side)
}

func TestGateUpgradesToHigherPriority(t *testing.T) {
	lv := testLevels()
	lv.Box = nil // only PDH/PDL available at first
	lv.Asia = &model.RangeLevel{High: 25600.00, Low: 25350.00}
	h := newHarness(t, Config{SLBuffer: 5.0}, lv)

	// Arm off the asia high.
	require.Empty(t, h.step(finalBar(10, 10, 25590, 25605, 25585, 25602)))
	// Later the PDH sweeps too; asia outranks it, so the gate is unchanged.
	require.Empty(t, h.step(finalBar(10, 20, 25602, 25830, 25600, 25820)))

	out := h.step(finalBar(10, 21, 25820, 25825, 25590, 25595))
	require.Len(t, out, 1)
	require.Equal(t, model.LabelAsia, out[0].SweepLabel)
	require.Equal(t, 25835.0, out[0].StopLoss, "extreme tracked through the PDH excursion")
	require.Nil(t, out[0].TakeProfit, "zero risk-reward leaves the take-profit absent")
}

func TestConfirmationRequiresStrictClose(t *testing.T) {
	h := newHarness(t, Config{SLBuffer: 5.0}, testLevels())

	h.step(finalBar(10, 12, 25530, 25560, 25525, 25552))
	// Close exactly at the level is not back through it.
	require.Empty(t, h.step(finalBar(10, 13, 25552, 25555, 25545, 25548.75)))
	short, _ := h.qual.States()
	require.Equal(t, Armed, short)

	require.Len(t, h.step(finalBar(10, 14, 25548, 25550, 25540, 25548.74)), 1)
}
