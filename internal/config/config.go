package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Instrument struct {
		Symbol   string  `yaml:"symbol"`
		Dataset  string  `yaml:"dataset"`
		Schema   string  `yaml:"schema"`
		TickSize float64 `yaml:"tick_size"`
		// Pointer so an explicit 0 (sizing footer disabled) survives
		// defaulting, like the sweep toggles.
		TickValue    *float64 `yaml:"tick_value"`
		PriceDivisor float64  `yaml:"price_divisor"`
		Timezone     string   `yaml:"timezone"`
	} `yaml:"instrument"`
	Window struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"window"`
	Sessions struct {
		BoxStart    string `yaml:"box_start"`
		BoxEnd      string `yaml:"box_end"`
		AsiaStart   string `yaml:"asia_start"`
		AsiaEnd     string `yaml:"asia_end"`
		LondonStart string `yaml:"london_start"`
		LondonEnd   string `yaml:"london_end"`
	} `yaml:"sessions"`
	Sweeps struct {
		UseBox      *bool `yaml:"use_box"`
		UseAsia     *bool `yaml:"use_asia"`
		UseLondon   *bool `yaml:"use_london"`
		UsePriorDay *bool `yaml:"use_prior_day"`
	} `yaml:"sweeps"`
	Entry struct {
		// SLBuffer and RiskPerTrade are pointers so explicit zeros (stop
		// exactly at the sweep extreme; sizing footer disabled) are not
		// swallowed by the defaults.
		SLBuffer     *float64 `yaml:"sl_buffer"`
		TPRiskReward float64  `yaml:"tp_rr"`
		RiskPerTrade *float64 `yaml:"risk_per_trade"`
	} `yaml:"entry"`
	Feed struct {
		WSURL   string `yaml:"ws_url"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"feed"`
	Discord struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"discord"`
	Levels struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"levels"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Schedule struct {
		LevelsCron string `yaml:"levels_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`

	// Parsed values, populated by Load and Validate.
	SweepSources SweepToggles   `yaml:"-"`
	Location     *time.Location `yaml:"-"`
	EntryWindow  Window         `yaml:"-"`
	BoxWindow    Window         `yaml:"-"`
	AsiaWindow   Window         `yaml:"-"`
	LondonWindow Window         `yaml:"-"`
}

// SweepToggles is the resolved per-source sweep enablement.
type SweepToggles struct {
	Box      bool
	Asia     bool
	London   bool
	PriorDay bool
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DISCORD_WEBHOOK"); v != "" {
		cfg.Discord.WebhookURL = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		cfg.Feed.WSURL = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		cfg.Feed.BaseURL = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Instrument.Symbol = v
	}
	if v := os.Getenv("DATASET"); v != "" {
		cfg.Instrument.Dataset = v
	}
	if v := os.Getenv("SCHEMA"); v != "" {
		cfg.Instrument.Schema = v
	}
	if v := os.Getenv("WINDOW_START"); v != "" {
		cfg.Window.Start = v
	}
	if v := os.Getenv("WINDOW_END"); v != "" {
		cfg.Window.End = v
	}
	if v := os.Getenv("SB_SL_BUFFER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Entry.SLBuffer = &f
		}
	}
	if v := os.Getenv("SB_TP_RR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Entry.TPRiskReward = f
		}
	}
	if v := os.Getenv("USE_BOX_AS_SWEEP"); v != "" {
		b := v == "1" || v == "true"
		cfg.Sweeps.UseBox = &b
	}
	if v := os.Getenv("USE_ASIA_AS_SWEEP"); v != "" {
		b := v == "1" || v == "true"
		cfg.Sweeps.UseAsia = &b
	}
	if v := os.Getenv("USE_LONDON_AS_SWEEP"); v != "" {
		b := v == "1" || v == "true"
		cfg.Sweeps.UseLondon = &b
	}
	if v := os.Getenv("USE_PDH_PDL_AS_SWEEP"); v != "" {
		b := v == "1" || v == "true"
		cfg.Sweeps.UsePriorDay = &b
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Instrument.Symbol == "" {
		cfg.Instrument.Symbol = "NQZ5"
	}
	if cfg.Instrument.Dataset == "" {
		cfg.Instrument.Dataset = "GLBX.MDP3"
	}
	if cfg.Instrument.Schema == "" {
		cfg.Instrument.Schema = "ohlcv-1m"
	}
	if cfg.Instrument.TickSize == 0 {
		cfg.Instrument.TickSize = 0.25
	}
	if cfg.Instrument.TickValue == nil {
		v := 5.0
		cfg.Instrument.TickValue = &v
	}
	if cfg.Instrument.PriceDivisor == 0 {
		cfg.Instrument.PriceDivisor = 1e9
	}
	if cfg.Instrument.Timezone == "" {
		cfg.Instrument.Timezone = "America/New_York"
	}
	if cfg.Window.Start == "" {
		cfg.Window.Start = "10:00"
	}
	if cfg.Window.End == "" {
		cfg.Window.End = "11:00"
	}
	if cfg.Sessions.BoxStart == "" {
		cfg.Sessions.BoxStart = "09:00"
	}
	if cfg.Sessions.BoxEnd == "" {
		cfg.Sessions.BoxEnd = "10:00"
	}
	if cfg.Sessions.AsiaStart == "" {
		cfg.Sessions.AsiaStart = "20:00"
	}
	if cfg.Sessions.AsiaEnd == "" {
		cfg.Sessions.AsiaEnd = "00:00"
	}
	if cfg.Sessions.LondonStart == "" {
		cfg.Sessions.LondonStart = "02:00"
	}
	if cfg.Sessions.LondonEnd == "" {
		cfg.Sessions.LondonEnd = "05:00"
	}
	if cfg.Entry.SLBuffer == nil {
		v := 5.0
		cfg.Entry.SLBuffer = &v
	}
	if cfg.Entry.RiskPerTrade == nil {
		v := 1500.0
		cfg.Entry.RiskPerTrade = &v
	}
	if cfg.Levels.StateFile == "" {
		cfg.Levels.StateFile = "data/levels.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/sbwatch.db"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9190"
	}
	if cfg.Schedule.LevelsCron == "" {
		cfg.Schedule.LevelsCron = "30 59 9 * * 1-5"
	}
	cfg.SweepSources = SweepToggles{
		Box:      cfg.Sweeps.UseBox == nil || *cfg.Sweeps.UseBox,
		Asia:     cfg.Sweeps.UseAsia == nil || *cfg.Sweeps.UseAsia,
		London:   cfg.Sweeps.UseLondon == nil || *cfg.Sweeps.UseLondon,
		PriorDay: cfg.Sweeps.UsePriorDay == nil || *cfg.Sweeps.UsePriorDay,
	}
}

// Validate checks every configuration rule that must hold before the engine
// starts, and fills in the parsed Location and windows. Invalid configuration
// is fatal at startup; it is never discovered mid-window.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Instrument.Timezone)
	if err != nil {
		return fmt.Errorf("instrument.timezone: %w", err)
	}
	c.Location = loc

	if c.Instrument.TickSize <= 0 {
		return fmt.Errorf("instrument.tick_size must be positive")
	}
	if c.Instrument.PriceDivisor <= 0 {
		return fmt.Errorf("instrument.price_divisor must be positive")
	}
	if c.Entry.SLBuffer == nil || *c.Entry.SLBuffer < 0 {
		return fmt.Errorf("entry.sl_buffer must not be negative")
	}
	if c.Entry.TPRiskReward < 0 {
		return fmt.Errorf("entry.tp_rr must not be negative")
	}

	w, err := parseWindow(c.Window.Start, c.Window.End)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if w.End <= w.Start {
		return fmt.Errorf("window: end %s must be after start %s", w.End, w.Start)
	}
	c.EntryWindow = w

	if c.BoxWindow, err = parseWindow(c.Sessions.BoxStart, c.Sessions.BoxEnd); err != nil {
		return fmt.Errorf("sessions.box: %w", err)
	}
	if c.BoxWindow.End <= c.BoxWindow.Start {
		return fmt.Errorf("sessions.box: end %s must be after start %s", c.BoxWindow.End, c.BoxWindow.Start)
	}
	if c.AsiaWindow, err = parseWindow(c.Sessions.AsiaStart, c.Sessions.AsiaEnd); err != nil {
		return fmt.Errorf("sessions.asia: %w", err)
	}
	if c.LondonWindow, err = parseWindow(c.Sessions.LondonStart, c.Sessions.LondonEnd); err != nil {
		return fmt.Errorf("sessions.london: %w", err)
	}

	s := c.SweepSources
	if !s.Box && !s.Asia && !s.London && !s.PriorDay {
		return fmt.Errorf("sweeps: at least one sweep source must be enabled")
	}
	return nil
}

func parseWindow(start, end string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, err
	}
	if s == e {
		return Window{}, fmt.Errorf("zero-length window %s-%s", start, end)
	}
	return Window{Start: s, End: e}, nil
}
