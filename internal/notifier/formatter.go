package notifier

import (
	"fmt"
	"strings"
	"time"

	"sbwatch/internal/model"
)

// ContractSizing parameterizes the risk-model footer on entry alerts.
type ContractSizing struct {
	TickSize     float64
	TickValue    float64
	RiskPerTrade float64
}

// FormatEntry renders the single-line entry alert.
func FormatEntry(c model.EntryCandidate, loc *time.Location) string {
	t := c.Time.In(loc).Format("15:04:05")
	tp := "—"
	if c.TakeProfit != nil {
		tp = fmtPrice(*c.TakeProfit)
	}
	return fmt.Sprintf("🟩 SB-ENTRY (%s ET) %s — sweep of %s Entry %s | SL %s | TP~%s",
		t, c.Side, c.SweepLabel, fmtPrice(c.Entry), fmtPrice(c.StopLoss), tp)
}

// FormatContractSizing renders the risk-model footer: stop distance in ticks,
// dollar risk per contract and the contract count for the configured
// per-trade risk. Empty when sizing is not configured.
func FormatContractSizing(c model.EntryCandidate, s ContractSizing) string {
	if s.TickSize <= 0 || s.TickValue <= 0 || s.RiskPerTrade <= 0 {
		return ""
	}
	stopTicks := abs(c.Entry-c.StopLoss) / s.TickSize
	riskPerContract := stopTicks * s.TickValue
	contracts := 1
	if riskPerContract > 0 {
		if n := int(s.RiskPerTrade / riskPerContract); n > 1 {
			contracts = n
		}
	}
	return fmt.Sprintf("⚙️ Risk model ➜ %.1f ticks | $%.2f/ct | %d contracts",
		stopTicks, riskPerContract, contracts)
}

// FormatLevels renders the session-levels scan alert.
func FormatLevels(lv *model.Levels, loc *time.Location) string {
	t := time.Now().In(loc).Format("15:04")
	var seg []string
	if lv.Box != nil {
		seg = append(seg, fmt.Sprintf("BOX %s-%s: %s–%s", lv.Box.Start, lv.Box.End, fmtPrice(lv.Box.High), fmtPrice(lv.Box.Low)))
	}
	if lv.PDH != nil && lv.PDL != nil {
		seg = append(seg, fmt.Sprintf("PDH: %s | PDL: %s", fmtPrice(*lv.PDH), fmtPrice(*lv.PDL)))
	}
	if lv.Asia != nil {
		seg = append(seg, fmt.Sprintf("ASIA: %s–%s", fmtPrice(lv.Asia.High), fmtPrice(lv.Asia.Low)))
	}
	if lv.London != nil {
		seg = append(seg, fmt.Sprintf("LONDON: %s–%s", fmtPrice(lv.London.High), fmtPrice(lv.London.Low)))
	}
	return fmt.Sprintf("📊 SESSION LEVELS (%s ET) %s", t, strings.Join(seg, " "))
}

// FormatArmed renders the window-open alert.
func FormatArmed(loc *time.Location) string {
	return fmt.Sprintf("🟢 SB-WATCHBOT ARMED (%s ET) Waiting for Silver Bullet setup...",
		time.Now().In(loc).Format("15:04:05"))
}

// FormatNoSignal renders the end-of-window alert when nothing fired.
func FormatNoSignal(loc *time.Location) string {
	return fmt.Sprintf("⚪ NO VALID SB TODAY (%s ET) No qualifying sweep + confirmation found.",
		time.Now().In(loc).Format("15:04"))
}

func fmtPrice(x float64) string {
	return fmt.Sprintf("%.2f", x)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
