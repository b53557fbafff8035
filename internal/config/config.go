package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"RisingStock/internal/logger"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Tickers struct {
		SpreadsheetName string `yaml:"spreadsheet_name" default:"stock_list"`
		Worksheet       string `yaml:"worksheet" default:"시트1"`
		Column          int    `yaml:"column" default:"1" validate:"gte=1"`
		CredentialsFile string `yaml:"credentials_file" default:"service_account.json"`
		CredentialsJSON string `yaml:"credentials_json"`
		File            string `yaml:"file"`
	} `yaml:"tickers"`
	Cache struct {
		PriceFile        string        `yaml:"price_file" default:"data/price_cache.json.zst"`
		FundamentalsFile string        `yaml:"fundamentals_file" default:"data/fundamentals.json.zst"`
		LookbackDays     int           `yaml:"lookback_days" default:"365" validate:"gte=60"`
		FundamentalsTTL  time.Duration `yaml:"fundamentals_ttl" default:"168h" validate:"gt=0"`
		Workers          int           `yaml:"workers" default:"10" validate:"gte=1,lte=64"`
		FetchTimeout     time.Duration `yaml:"fetch_timeout" default:"20s" validate:"gt=0"`
	} `yaml:"cache"`
	Screener struct {
		Window            int     `yaml:"window" default:"60" validate:"gte=2"`
		MaxVolatility     float64 `yaml:"max_volatility" default:"0.2" validate:"gt=0,lte=1"`
		NearHighRatio     float64 `yaml:"near_high_ratio" default:"0.85" validate:"gt=0,lte=1"`
		VolumeWindow      int     `yaml:"volume_window" default:"20" validate:"gte=1"`
		VolumeSpikeFactor float64 `yaml:"volume_spike_factor" default:"1.03" validate:"gt=0"`
		InstOwnThreshold  float64 `yaml:"inst_own_threshold" default:"0.4" validate:"gte=0,lte=1"`
	} `yaml:"screener"`
	Yahoo struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" default:"4" validate:"gt=0"`
		Burst             int     `yaml:"burst" default:"2" validate:"gte=1"`
		NewsCount         int     `yaml:"news_count" default:"10" validate:"gte=1"`
	} `yaml:"yahoo"`
	Schedule struct {
		ScreenCron    string `yaml:"screen_cron" default:"0 30 7 * * 2-6"`
		WatchlistCron string `yaml:"watchlist_cron" default:"0 40 15 * * 1-5"`
		Watchlist     string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/rising_stock.db"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// Load reads config from a YAML file, fills defaults, then applies environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

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
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("GCP_JSON"); v != "" {
		cfg.Tickers.CredentialsJSON = v
	}
	if v := os.Getenv("SHEET_NAME"); v != "" {
		cfg.Tickers.SpreadsheetName = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// PathFromEnv returns CONFIG_PATH or the default location.
func PathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Validate checks field constraints. Telegram settings are only required when
// notify is set.
func (c *Config) Validate(notify bool) error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if notify {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required")
		}
	}
	return nil
}
