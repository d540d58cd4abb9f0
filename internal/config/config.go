package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/quorum/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Engine     EngineConfig              `mapstructure:"engine" yaml:"engine"`
	Trading    Trading                   `mapstructure:"trading" yaml:"trading"`
	Broker     BrokerConfig              `mapstructure:"broker" yaml:"broker"`
	MarketData MarketDataConfig          `mapstructure:"marketdata" yaml:"marketdata"`
	News       NewsConfig                `mapstructure:"news" yaml:"news"`
	LLM        LLMConfig                 `mapstructure:"llm" yaml:"llm"`
	Store      StoreConfig               `mapstructure:"store" yaml:"store"`
	Archive    ArchiveConfig             `mapstructure:"archive" yaml:"archive"`
	Metrics    MetricsConfig             `mapstructure:"metrics" yaml:"metrics"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers" yaml:"notifiers"`
}

// EngineConfig holds evaluation loop settings.
type EngineConfig struct {
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	Backoff       time.Duration `mapstructure:"backoff" yaml:"backoff"`
	Timeframe     string        `mapstructure:"timeframe" yaml:"timeframe"`
	BarLimit      int           `mapstructure:"bar_limit" yaml:"bar_limit"`
	NewsLimit     int           `mapstructure:"news_limit" yaml:"news_limit"`
	DefaultEquity float64       `mapstructure:"default_equity" yaml:"default_equity"`
	Symbols       []string      `mapstructure:"symbols" yaml:"symbols"`
	AutoStart     bool          `mapstructure:"auto_start" yaml:"auto_start"`
}

// BrokerConfig selects the brokerage backend.
type BrokerConfig struct {
	Provider string       `mapstructure:"provider" yaml:"provider"` // "paper" or "alpaca"
	Paper    PaperConfig  `mapstructure:"paper" yaml:"paper"`
	Alpaca   AlpacaConfig `mapstructure:"alpaca" yaml:"alpaca"`
}

type PaperConfig struct {
	StartingEquity float64 `mapstructure:"starting_equity" yaml:"starting_equity"`
}

type AlpacaConfig struct {
	KeyID      string        `mapstructure:"key_id" yaml:"key_id"`
	SecretKey  string        `mapstructure:"secret_key" yaml:"secret_key"`
	TradingURL string        `mapstructure:"trading_url" yaml:"trading_url"`
	DataURL    string        `mapstructure:"data_url" yaml:"data_url"`
	Feed       string        `mapstructure:"feed" yaml:"feed"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MarketDataConfig selects the bar provider.
type MarketDataConfig struct {
	Provider          string `mapstructure:"provider" yaml:"provider"` // "yahoo", "alpaca" or "synthetic"
	SyntheticFallback bool   `mapstructure:"synthetic_fallback" yaml:"synthetic_fallback"`
}

// NewsConfig selects the headline provider.
type NewsConfig struct {
	Provider     string           `mapstructure:"provider" yaml:"provider"` // "", "static" or "finnhub"
	CacheTTL     time.Duration    `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	ScoreWithLLM bool             `mapstructure:"score_with_llm" yaml:"score_with_llm"`
	Finnhub      FinnhubConfig    `mapstructure:"finnhub" yaml:"finnhub"`
	Static       []StaticHeadline `mapstructure:"static" yaml:"static"`
}

type FinnhubConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// StaticHeadline is a fixed, pre-scored headline for one symbol.
type StaticHeadline struct {
	Symbol    string  `mapstructure:"symbol" yaml:"symbol"`
	Headline  string  `mapstructure:"headline" yaml:"headline"`
	Sentiment float64 `mapstructure:"sentiment" yaml:"sentiment"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider" yaml:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude" yaml:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama" yaml:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// StoreConfig selects trade/state persistence.
type StoreConfig struct {
	Type        string `mapstructure:"type" yaml:"type"` // "memory" or "sqlite"
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	MaxMemTrade int    `mapstructure:"max_memory_trades" yaml:"max_memory_trades"`
}

// ArchiveConfig holds the trade journal export settings.
type ArchiveConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Type     string   `mapstructure:"type" yaml:"type"` // "localfs" or "s3"
	Path     string   `mapstructure:"path" yaml:"path"` // For localfs
	S3       S3Config `mapstructure:"s3" yaml:"s3"`     // For S3
	Schedule string   `mapstructure:"schedule" yaml:"schedule"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// NotifierConfig configures one event notifier. An empty Events list
// subscribes to every event kind.
type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled" yaml:"enabled"`
	Type     string            `mapstructure:"type" yaml:"type"` // "webhook" (default) or "telegram"
	URL      string            `mapstructure:"url" yaml:"url"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers"`
	BotToken string            `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   string            `mapstructure:"chat_id" yaml:"chat_id"`
	Events   []string          `mapstructure:"events" yaml:"events"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for i, s := range cfg.Engine.Symbols {
		cfg.Engine.Symbols[i] = core.NormalizeSymbol(s)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Interval:      60 * time.Second,
			Backoff:       10 * time.Second,
			Timeframe:     "1Day",
			BarLimit:      250,
			NewsLimit:     5,
			DefaultEquity: 10000,
			AutoStart:     true,
		},
		Trading: DefaultTrading(),
		Broker: BrokerConfig{
			Provider: "paper",
			Paper:    PaperConfig{StartingEquity: 10000},
			Alpaca: AlpacaConfig{
				TradingURL: "https://paper-api.alpaca.markets",
				DataURL:    "https://data.alpaca.markets",
				Feed:       "iex",
				Timeout:    15 * time.Second,
			},
		},
		MarketData: MarketDataConfig{
			Provider:          "yahoo",
			SyntheticFallback: true,
		},
		News: NewsConfig{
			CacheTTL: 15 * time.Minute,
			Finnhub:  FinnhubConfig{BaseURL: "https://finnhub.io/api/v1"},
		},
		Store: StoreConfig{
			Type:        "memory",
			MaxMemTrade: 10000,
		},
		Archive: ArchiveConfig{
			Type:     "localfs",
			Path:     "./data/archive",
			Schedule: "5 0 * * *",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Engine.Interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.interval must be positive, got %s", c.Engine.Interval))
	}
	if c.Engine.Backoff <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.backoff must be positive, got %s", c.Engine.Backoff))
	}
	if c.Engine.BarLimit < 50 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.bar_limit must be at least 50, got %d", c.Engine.BarLimit))
	}
	if c.Engine.DefaultEquity <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.default_equity must be positive, got %g", c.Engine.DefaultEquity))
	}

	if err := c.Trading.Validate(); err != nil {
		return err
	}

	switch c.Broker.Provider {
	case "paper":
	case "alpaca":
		if c.Broker.Alpaca.KeyID == "" || c.Broker.Alpaca.SecretKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca key_id and secret_key required when broker provider is alpaca"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown broker provider %q", c.Broker.Provider))
	}

	switch c.MarketData.Provider {
	case "yahoo", "synthetic":
	case "alpaca":
		if c.Broker.Alpaca.KeyID == "" || c.Broker.Alpaca.SecretKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca key_id and secret_key required when marketdata provider is alpaca"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown marketdata provider %q", c.MarketData.Provider))
	}

	switch c.News.Provider {
	case "", "static":
	case "finnhub":
		if c.News.Finnhub.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("finnhub api_key required when news provider is finnhub"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown news provider %q", c.News.Provider))
	}
	if c.News.ScoreWithLLM && c.LLM.Provider == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("news.score_with_llm requires an llm provider"))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("store.dsn required when store type is sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.s3.bucket required for s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch n.Type {
		case "", "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifier %s: url required", name))
			}
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifier %s: bot_token and chat_id required", name))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifier %s: unknown type %q", name, n.Type))
		}
		for _, e := range n.Events {
			if !knownEvent(e) {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("notifier %s: unknown event %q", name, e))
			}
		}
	}

	return nil
}

const redacted = "****"

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	out := c
	out.Broker.Alpaca.KeyID = mask(c.Broker.Alpaca.KeyID)
	out.Broker.Alpaca.SecretKey = mask(c.Broker.Alpaca.SecretKey)
	out.News.Finnhub.APIKey = mask(c.News.Finnhub.APIKey)
	out.LLM.Claude.APIKey = mask(c.LLM.Claude.APIKey)
	out.LLM.OpenAI.APIKey = mask(c.LLM.OpenAI.APIKey)
	out.Archive.S3.AccessKey = mask(c.Archive.S3.AccessKey)
	out.Archive.S3.SecretKey = mask(c.Archive.S3.SecretKey)
	if c.Notifiers != nil {
		out.Notifiers = make(map[string]NotifierConfig, len(c.Notifiers))
		for name, n := range c.Notifiers {
			n.BotToken = mask(n.BotToken)
			if len(n.Headers) > 0 {
				headers := make(map[string]string, len(n.Headers))
				for k := range n.Headers {
					headers[k] = redacted
				}
				n.Headers = headers
			}
			out.Notifiers[name] = n
		}
	}
	return out
}

// knownEvent mirrors the event kinds published by the scheduler.
func knownEvent(name string) bool {
	switch name {
	case "analysisUpdate", "newTrade", "botStatus":
		return true
	}
	return false
}
