// Package scheduler drives the daily lifecycle: build levels before the
// window, reset the engine at window open, and sweep up at window close.
// Calendar/holiday logic stays here; the engine only sees reset events.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"sbwatch/internal/config"
	"sbwatch/internal/engine"
	"sbwatch/internal/feed"
	"sbwatch/internal/levels"
	"sbwatch/internal/model"
	"sbwatch/internal/notifier"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Cfg        *config.Config
	Engine     *engine.Engine
	Store      *levels.Store
	Historical feed.Historical
	Notifier   *notifier.DiscordNotifier
	Ctx        context.Context
}

// NewScheduler creates a Scheduler running in the exchange timezone.
func NewScheduler(ctx context.Context, cfg *config.Config, eng *engine.Engine, store *levels.Store, hist feed.Historical, dn *notifier.DiscordNotifier) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location)),
		Cfg:        cfg,
		Engine:     eng,
		Store:      store,
		Historical: hist,
		Notifier:   dn,
		Ctx:        ctx,
	}
}

// RegisterAll registers the level build, window open and window close tasks.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.Cfg.Schedule.LevelsCron, s.buildLevelsTask); err != nil {
		return fmt.Errorf("register levels task: %w", err)
	}
	if _, err := s.Cron.AddFunc(weekdayCron(s.Cfg.EntryWindow.Start), s.windowOpenTask); err != nil {
		return fmt.Errorf("register window open task: %w", err)
	}
	// One minute after the window end so the trailing bar has finalized.
	if _, err := s.Cron.AddFunc(weekdayCron(s.Cfg.EntryWindow.End+1), s.windowCloseTask); err != nil {
		return fmt.Errorf("register window close task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunLevelsNow executes the level build immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunLevelsNow() {
	s.buildLevelsTask()
}

// BuildLevels fetches the historical windows and computes today's levels.
// A window with no bars disables that sweep source for the day; the build
// fails outright only when every source came up empty.
func (s *Scheduler) BuildLevels(day time.Time) (*model.Levels, error) {
	cfg := s.Cfg
	loc := cfg.Location
	toggles := cfg.SweepSources
	in := levels.Input{}

	fetch := func(name string, start, end time.Time) []model.Bar {
		ctx, cancel := context.WithTimeout(s.Ctx, time.Minute)
		defer cancel()
		bs, err := s.Historical.FetchBars(ctx, cfg.Instrument.Symbol, start, end)
		if err != nil {
			log.Printf("[WARN] fetch %s window: %v", name, err)
			return nil
		}
		return bs
	}

	if toggles.Box {
		start, end := levels.Bounds(day, cfg.BoxWindow, loc)
		in.Box = fetch("box", start, end)
	}
	if toggles.PriorDay {
		prior := levels.PriorTradingDay(day)
		start, end := levels.Bounds(prior, levels.RegularSession, loc)
		in.PriorDay = fetch("prior day", start, end)
	}
	if toggles.Asia {
		start, end := levels.Bounds(day, cfg.AsiaWindow, loc)
		in.Asia = fetch("asia", start, end)
	}
	if toggles.London {
		start, end := levels.Bounds(day, cfg.LondonWindow, loc)
		in.London = fetch("london", start, end)
	}

	meta := levels.Meta{
		Symbol:  cfg.Instrument.Symbol,
		Dataset: cfg.Instrument.Dataset,
		Schema:  cfg.Instrument.Schema,
	}
	lv, err := levels.Build(in, day, toggles, cfg.BoxWindow, meta)
	if err != nil {
		log.Printf("[WARN] level build: %v", err)
	}
	if lv.Empty() {
		return nil, fmt.Errorf("level build: no sweep source has data for %s", lv.Date)
	}
	return lv, nil
}

func (s *Scheduler) buildLevelsTask() {
	log.Println("[INFO] running level build")
	day := time.Now().In(s.Cfg.Location)
	lv, err := s.BuildLevels(day)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		s.trySend(fmt.Sprintf("❌ Level build failed: %v", err))
		return
	}
	if err := s.Store.Save(lv); err != nil {
		log.Printf("[ERROR] save levels: %v", err)
		return
	}
	s.trySend(notifier.FormatLevels(lv, s.Cfg.Location))
}

func (s *Scheduler) windowOpenTask() {
	log.Println("[INFO] window open: loading levels and resetting engine")
	lv, err := s.Store.Load()
	if err != nil {
		// The window still rolls over: a corrupt levels file must not
		// leave yesterday's gates and per-side state armed.
		log.Printf("[ERROR] load levels: %v", err)
		lv = nil
	}
	today := time.Now().In(s.Cfg.Location).Format("2006-01-02")
	if lv == nil || lv.Date != today {
		log.Printf("[WARN] levels missing or stale (have %v, want %s); all sources disabled today",
			dateOf(lv), today)
		lv = &model.Levels{Date: today, Symbol: s.Cfg.Instrument.Symbol}
	}
	s.Engine.ResetWindow(lv)
	s.trySend(notifier.FormatArmed(s.Cfg.Location))
}

func (s *Scheduler) windowCloseTask() {
	short, long := s.Engine.FiredSides()
	log.Printf("[INFO] window close: fired short=%v long=%v", short, long)
	if !short && !long {
		s.trySend(notifier.FormatNoSignal(s.Cfg.Location))
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

func dateOf(lv *model.Levels) string {
	if lv == nil {
		return "<none>"
	}
	return lv.Date
}

// weekdayCron renders a seconds-aware cron expression firing at the given
// local time of day, Monday through Friday.
func weekdayCron(t config.TimeOfDay) string {
	if t >= 24*60 {
		t = 24*60 - 1
	}
	return fmt.Sprintf("0 %d %d * * 1-5", int(t)%60, int(t)/60)
}
