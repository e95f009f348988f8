// Command replay feeds a historical minute-bar CSV through the engine's
// pure replay entry point and prints every fired candidate. The decisions it
// reaches are identical to the live path's for the same bars.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sbwatch/internal/config"
	"sbwatch/internal/engine"
	"sbwatch/internal/feed"
	"sbwatch/internal/levels"
	"sbwatch/internal/model"
	"sbwatch/internal/notifier"
	"sbwatch/internal/recorder"
)

type printNotifier struct {
	cfg *config.Config
}

func (p *printNotifier) PostEntry(c model.EntryCandidate) error {
	fmt.Println(notifier.FormatEntry(c, p.cfg.Location))
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags)

	var (
		csvPath    = flag.String("csv", "", "minute-bar CSV (ts_ms,open,high,low,close,volume)")
		levelsPath = flag.String("levels", "data/levels.json", "levels JSON document")
		cfgPath    = flag.String("config", "configs/config.yaml", "config file")
		trace      = flag.String("trace", "", "optional SQLite path for the gate trace")
	)
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("[FATAL] -csv is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	lv, err := levels.NewStore(*levelsPath).Load()
	if err != nil {
		log.Fatalf("[FATAL] load levels: %v", err)
	}
	if lv == nil {
		log.Fatalf("[FATAL] levels file %s not found", *levelsPath)
	}

	rec := recorder.Recorder(recorder.NewNoopRecorder())
	if *trace != "" {
		sr, err := recorder.NewSQLiteRecorder(*trace)
		if err != nil {
			log.Fatalf("[FATAL] open trace db: %v", err)
		}
		defer sr.Close()
		rec = sr
	}

	bars, err := feed.ReadBarsCSV(*csvPath)
	if err != nil {
		log.Fatalf("[FATAL] read bars: %v", err)
	}
	log.Printf("[INFO] replaying %d bars for %s (%s)", len(bars), cfg.Instrument.Symbol, lv.Date)

	eng := engine.New(cfg, lv, &printNotifier{cfg: cfg}, engine.WithRecorder(rec))
	for _, b := range bars {
		eng.OnBar(b)
	}
	eng.Close()

	short, long := eng.FiredSides()
	if !short && !long {
		fmt.Println("no qualifying sweep + confirmation in the window")
		os.Exit(0)
	}
}
