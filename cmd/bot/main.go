package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sbwatch/internal/config"
	"sbwatch/internal/engine"
	"sbwatch/internal/feed"
	"sbwatch/internal/levels"
	"sbwatch/internal/metrics"
	"sbwatch/internal/notifier"
	"sbwatch/internal/recorder"
	"sbwatch/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] sbwatch starting...")

	// .env for secrets (webhook URL, feed key); absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Discord notifier
	dn := notifier.NewDiscordNotifier(ctx, cfg.Discord.WebhookURL, cfg.Proxy, cfg.Location, notifier.ContractSizing{
		TickSize:     cfg.Instrument.TickSize,
		TickValue:    *cfg.Instrument.TickValue,
		RiskPerTrade: *cfg.Entry.RiskPerTrade,
	})

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Levels persisted by the build job, consumed at window open.
	store := levels.NewStore(cfg.Levels.StateFile)
	lv, err := store.Load()
	if err != nil {
		log.Printf("[WARN] load levels: %v", err)
	}

	// Init engine
	eng := engine.New(cfg, lv, dn, engine.WithRecorder(rec))
	defer eng.Close()

	// Init historical fetcher and scheduler
	hist := feed.NewHTTPHistorical(cfg.Feed.BaseURL, cfg.Feed.APIKey,
		cfg.Instrument.Dataset, cfg.Instrument.Schema, cfg.Instrument.PriceDivisor, cfg.Proxy)
	sched := scheduler.NewScheduler(ctx, cfg, eng, store, hist, dn)
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Metrics endpoint
	msrv := metrics.Serve(cfg.Metrics.ListenAddr)
	defer msrv.Close()
	log.Printf("[INFO] metrics listening on %s", cfg.Metrics.ListenAddr)

	// Optional: build levels immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, building levels now")
		go sched.RunLevelsNow()
	}

	// Live observation loop
	stream := feed.NewStream(cfg.Feed.WSURL, cfg.Feed.APIKey,
		cfg.Instrument.Dataset, cfg.Instrument.Schema, cfg.Instrument.Symbol, cfg.Instrument.PriceDivisor)
	go func() {
		for obs := range stream.Observations(ctx) {
			// Stale/invalid drops are already logged and counted.
			_ = eng.OnObservation(obs)
		}
	}()

	log.Printf("[INFO] sbwatch is running for %s | window %s-%s %s",
		cfg.Instrument.Symbol, cfg.EntryWindow.Start, cfg.EntryWindow.End, cfg.Instrument.Timezone)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] sbwatch stopped")
}
