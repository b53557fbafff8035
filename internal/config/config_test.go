package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "stock_list", cfg.Tickers.SpreadsheetName)
	assert.Equal(t, 365, cfg.Cache.LookbackDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.FundamentalsTTL)
	assert.Equal(t, 10, cfg.Cache.Workers)
	assert.Equal(t, 20*time.Second, cfg.Cache.FetchTimeout)
	assert.Equal(t, 60, cfg.Screener.Window)
	assert.InDelta(t, 0.2, cfg.Screener.MaxVolatility, 1e-12)
	assert.InDelta(t, 1.03, cfg.Screener.VolumeSpikeFactor, 1e-12)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate(false))
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
tickers:
  spreadsheet_name: my_list
cache:
  workers: 4
  fundamentals_ttl: 48h
screener:
  max_volatility: 0.15
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("SHEET_NAME", "from_env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Tickers.SpreadsheetName)
	assert.Equal(t, 4, cfg.Cache.Workers)
	assert.Equal(t, 48*time.Hour, cfg.Cache.FundamentalsTTL)
	assert.InDelta(t, 0.15, cfg.Screener.MaxVolatility, 1e-12)
	assert.InDelta(t, 0.85, cfg.Screener.NearHighRatio, 1e-12)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		notify  bool
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false, false},
		{"notify without token", func(*Config) {}, true, true},
		{"zero workers", func(c *Config) { c.Cache.Workers = 0 }, false, true},
		{"short lookback", func(c *Config) { c.Cache.LookbackDays = 30 }, false, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false, true},
		{"notify with telegram", func(c *Config) {
			c.Telegram.BotToken = "t"
			c.Telegram.ChatID = "1"
		}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate(tt.notify)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
