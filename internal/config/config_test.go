package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file falls back to defaults")

	require.Equal(t, "NQZ5", cfg.Instrument.Symbol)
	require.Equal(t, "GLBX.MDP3", cfg.Instrument.Dataset)
	require.Equal(t, "ohlcv-1m", cfg.Instrument.Schema)
	require.Equal(t, 0.25, cfg.Instrument.TickSize)
	require.Equal(t, 5.0, *cfg.Instrument.TickValue)
	require.Equal(t, 1e9, cfg.Instrument.PriceDivisor)
	require.Equal(t, "America/New_York", cfg.Instrument.Timezone)
	require.Equal(t, "10:00", cfg.Window.Start)
	require.Equal(t, "11:00", cfg.Window.End)
	require.Equal(t, 5.0, *cfg.Entry.SLBuffer)
	require.Equal(t, 0.0, cfg.Entry.TPRiskReward)
	require.Equal(t, 1500.0, *cfg.Entry.RiskPerTrade)
	require.Equal(t, "data/levels.json", cfg.Levels.StateFile)
	require.Equal(t, ":9190", cfg.Metrics.ListenAddr)
	require.Equal(t, "30 59 9 * * 1-5", cfg.Schedule.LevelsCron)
	require.Equal(t, SweepToggles{Box: true, Asia: true, London: true, PriorDay: true},
		cfg.SweepSources, "all sweep sources default on")
}

func TestLoad_YAMLAndToggles(t *testing.T) {
	path := writeConfig(t, `
instrument:
  symbol: ESZ5
  timezone: UTC
window:
  start: "09:30"
  end: "10:30"
sweeps:
  use_asia: false
  use_london: false
entry:
  sl_buffer: 7.5
  tp_rr: 2.0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "ESZ5", cfg.Instrument.Symbol)
	require.Equal(t, 7.5, *cfg.Entry.SLBuffer)
	require.Equal(t, 2.0, cfg.Entry.TPRiskReward)
	require.Equal(t, SweepToggles{Box: true, Asia: false, London: false, PriorDay: true},
		cfg.SweepSources, "explicit false sticks, absent defaults on")

	require.NoError(t, cfg.Validate())
	require.Equal(t, Window{Start: 9*60 + 30, End: 10*60 + 30}, cfg.EntryWindow)
	require.Equal(t, time.UTC.String(), cfg.Location.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "MNQZ5")
	t.Setenv("WINDOW_START", "14:00")
	t.Setenv("WINDOW_END", "15:00")
	t.Setenv("SB_SL_BUFFER", "10")
	t.Setenv("SB_TP_RR", "1.5")
	t.Setenv("USE_BOX_AS_SWEEP", "false")
	t.Setenv("DISCORD_WEBHOOK", "https://discord.example/hook")

	path := writeConfig(t, `
instrument:
  symbol: NQZ5
window:
  start: "10:00"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "MNQZ5", cfg.Instrument.Symbol, "environment wins over file")
	require.Equal(t, "14:00", cfg.Window.Start)
	require.Equal(t, "15:00", cfg.Window.End)
	require.Equal(t, 10.0, *cfg.Entry.SLBuffer)
	require.Equal(t, 1.5, cfg.Entry.TPRiskReward)
	require.False(t, cfg.SweepSources.Box)
	require.Equal(t, "https://discord.example/hook", cfg.Discord.WebhookURL)
}

func TestLoad_ExplicitZerosSurviveDefaults(t *testing.T) {
	path := writeConfig(t, `
instrument:
  tick_value: 0
entry:
  sl_buffer: 0
  risk_per_trade: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	// A stop exactly at the sweep extreme and a disabled sizing footer are
	// valid settings; zero must not fall back to the defaults.
	require.Equal(t, 0.0, *cfg.Entry.SLBuffer)
	require.Equal(t, 0.0, *cfg.Entry.RiskPerTrade)
	require.Equal(t, 0.0, *cfg.Instrument.TickValue)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ZeroSLBufferFromEnv(t *testing.T) {
	t.Setenv("SB_SL_BUFFER", "0")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 0.0, *cfg.Entry.SLBuffer)
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Instrument.Timezone = "Mars/Olympus" }},
		{"zero tick size", func(c *Config) { c.Instrument.TickSize = -0.25 }},
		{"negative sl buffer", func(c *Config) { v := -1.0; c.Entry.SLBuffer = &v }},
		{"negative tp rr", func(c *Config) { c.Entry.TPRiskReward = -1 }},
		{"inverted window", func(c *Config) { c.Window.Start, c.Window.End = "11:00", "10:00" }},
		{"zero-length window", func(c *Config) { c.Window.End = c.Window.Start }},
		{"unparseable window", func(c *Config) { c.Window.Start = "25:99" }},
		{"no sweep sources", func(c *Config) {
			c.SweepSources = SweepToggles{}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay(9*60+30), got)
	require.Equal(t, "09:30", got.String())

	for _, bad := range []string{"24:00", "09:60", "-1:00", "morning"} {
		_, err := ParseTimeOfDay(bad)
		require.Error(t, err, bad)
	}
}

func TestWindowContains(t *testing.T) {
	loc := time.UTC
	day := func(hh, mm int) time.Time {
		return time.Date(2026, 8, 27, hh, mm, 0, 0, loc)
	}

	w := Window{Start: 600, End: 660} // 10:00-11:00
	require.False(t, w.Contains(day(9, 59), loc))
	require.True(t, w.Contains(day(10, 0), loc))
	require.True(t, w.Contains(day(10, 59), loc))
	require.False(t, w.Contains(day(11, 0), loc))
	require.False(t, w.CrossesMidnight())

	// Asia-style 20:00-00:00 wraps past midnight.
	asia := Window{Start: 1200, End: 0}
	require.True(t, asia.CrossesMidnight())
	require.True(t, asia.Contains(day(20, 0), loc))
	require.True(t, asia.Contains(day(23, 59), loc))
	require.False(t, asia.Contains(day(0, 0), loc))
	require.False(t, asia.Contains(day(19, 59), loc))
}
