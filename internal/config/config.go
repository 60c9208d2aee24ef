package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"MarketTraffic/internal/model"
)

// DotEnvPath is loaded into the environment before overrides are applied.
// A missing file is not an error.
var DotEnvPath = ".env"

// DefaultSymbols is tracked when the config lists none.
var DefaultSymbols = []model.SymbolRef{
	{Code: "NVDA", Name: "NVIDIA"},
	{Code: "AAPL", Name: "Apple"},
	{Code: "MSFT", Name: "Microsoft"},
	{Code: "TSLA", Name: "Tesla"},
	{Code: "AMZN", Name: "Amazon"},
	{Code: "BTC/USDT", Name: "BTCUSDT"},
	{Code: "ETH/USDT", Name: "ETHUSDT"},
}

// Config holds all application configuration.
type Config struct {
	Finnhub struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		WSURL   string        `yaml:"ws_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"finnhub"`
	Feed struct {
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		DirectionReset time.Duration `yaml:"direction_reset"`
	} `yaml:"feed"`
	Symbols []model.SymbolRef `yaml:"symbols"`
	View    string            `yaml:"view"`
	News    struct {
		Count int `yaml:"count"`
	} `yaml:"news"`
	Export struct {
		Dir  string `yaml:"dir"`
		Cron string `yaml:"cron"`
	} `yaml:"export"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvPath, err)
	}

	// Environment variable overrides
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINNHUB_BASE_URL"); v != "" {
		cfg.Finnhub.BaseURL = v
	}
	if v := os.Getenv("FINNHUB_WS_URL"); v != "" {
		cfg.Finnhub.WSURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("EXPORT_CRON"); v != "" {
		cfg.Export.Cron = v
	}
	if v := os.Getenv("NEWS_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.News.Count = n
		}
	}
	if v := os.Getenv("TRACK_SYMBOLS"); v != "" {
		cfg.Symbols = ParseSymbols(v)
	}

	// Defaults
	if cfg.Finnhub.BaseURL == "" {
		cfg.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Finnhub.WSURL == "" {
		cfg.Finnhub.WSURL = "wss://ws.finnhub.io"
	}
	if cfg.Finnhub.Timeout == 0 {
		cfg.Finnhub.Timeout = 10 * time.Second
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.DirectionReset == 0 {
		cfg.Feed.DirectionReset = 2 * time.Second
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]model.SymbolRef(nil), DefaultSymbols...)
	}
	if cfg.View == "" {
		cfg.View = string(model.ViewTraffic)
	}
	if cfg.News.Count == 0 {
		cfg.News.Count = 20
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	return cfg, nil
}

// ParseSymbols parses "CODE[:Name],CODE[:Name]". Crypto pairs keep their
// slash, e.g. "BTC/USDT:Bitcoin".
func ParseSymbols(s string) []model.SymbolRef {
	var out []model.SymbolRef
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, name, _ := strings.Cut(part, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if name == "" {
			name = strings.ReplaceAll(code, "/", "")
		}
		out = append(out, model.SymbolRef{Code: code, Name: name})
	}
	return out
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Logging.Level)
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required")
	}
	if c.Finnhub.BaseURL == "" {
		return fmt.Errorf("finnhub.base_url is required")
	}
	if c.Finnhub.WSURL == "" {
		return fmt.Errorf("finnhub.ws_url is required")
	}
	if c.Feed.ReconnectDelay < 0 || c.Feed.DirectionReset < 0 {
		return fmt.Errorf("feed delays must not be negative")
	}
	if c.News.Count <= 0 {
		return fmt.Errorf("news.count must be positive")
	}
	switch model.View(c.View) {
	case model.ViewTraffic, model.ViewNews:
	default:
		return fmt.Errorf("view must be %q or %q, got %q", model.ViewTraffic, model.ViewNews, c.View)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	for i, s := range c.Symbols {
		if strings.TrimSpace(s.Code) == "" {
			return fmt.Errorf("symbols[%d].code is required", i)
		}
	}
	return nil
}
