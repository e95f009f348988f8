package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"sbwatch/internal/model"
)

// ReadBarsCSV loads finalized minute bars from a
// `ts_ms,open,high,low,close,volume` file, the format the minute proxy and
// capture tooling produce. Used by the replay driver and the offline level
// builder.
func ReadBarsCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"ts_ms", "open", "high", "low", "close"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q in %s", name, path)
		}
	}

	var bars []model.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		ts, err := strconv.ParseInt(rec[col["ts_ms"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ts_ms %q: %w", rec[col["ts_ms"]], err)
		}
		b := model.Bar{
			Start:     time.UnixMilli(ts).UTC(),
			Finalized: true,
		}
		if b.Open, err = strconv.ParseFloat(rec[col["open"]], 64); err != nil {
			return nil, fmt.Errorf("parse open: %w", err)
		}
		if b.High, err = strconv.ParseFloat(rec[col["high"]], 64); err != nil {
			return nil, fmt.Errorf("parse high: %w", err)
		}
		if b.Low, err = strconv.ParseFloat(rec[col["low"]], 64); err != nil {
			return nil, fmt.Errorf("parse low: %w", err)
		}
		if b.Close, err = strconv.ParseFloat(rec[col["close"]], 64); err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		if i, ok := col["volume"]; ok {
			b.Volume, _ = strconv.ParseFloat(rec[i], 64)
		}
		bars = append(bars, b)
	}
	return bars, nil
}
