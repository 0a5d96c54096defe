package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"floorwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Watcher     WatcherConfig     `mapstructure:"watcher"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Rates       RatesConfig       `mapstructure:"rates"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Export      ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatcherConfig governs poll cadence and floor refresh behaviour.
type WatcherConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	RefreshEvery int64         `mapstructure:"refresh_every"`
}

// MarketplaceConfig covers the item-listing API.
type MarketplaceConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Collection      string        `mapstructure:"collection"`
	PageSize        int           `mapstructure:"page_size"`
	MaxPages        int           `mapstructure:"max_pages"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
}

// RatesConfig captures the spot conversion rate source.
type RatesConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Symbol         string        `mapstructure:"symbol"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FetchConfig tunes the outbound retry budget.
type FetchConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// TelegramConfig describes the alert channel and operator command interface.
type TelegramConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BotToken     string        `mapstructure:"bot_token"`
	ChannelID    string        `mapstructure:"channel_id"`
	APIBase      string        `mapstructure:"api_base"`
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOORWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "floorwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("watcher.interval", "10s")
	v.SetDefault("watcher.startup_delay", "0s")
	v.SetDefault("watcher.refresh_every", int64(3))

	v.SetDefault("marketplace.base_url", "https://og.rarible.com/marketplace/api/v4")
	v.SetDefault("marketplace.collection", "POLYGON-0xd8156606d2bf60c12d55f561395d29ba3c5ccc63")
	v.SetDefault("marketplace.page_size", 100)
	v.SetDefault("marketplace.max_pages", 20)
	v.SetDefault("marketplace.request_timeout", "30s")
	v.SetDefault("marketplace.metadata_timeout", "5s")

	v.SetDefault("rates.base_url", "https://api.binance.com")
	v.SetDefault("rates.symbol", "ETHUSDT")
	v.SetDefault("rates.request_timeout", "5s")

	v.SetDefault("fetch.attempts", 3)
	v.SetDefault("fetch.backoff", "1s")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.image_timeout", "8s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher.interval must be greater than zero")
	}
	if c.Watcher.RefreshEvery <= 0 {
		return fmt.Errorf("watcher.refresh_every must be greater than zero")
	}
	if c.Marketplace.Collection == "" {
		return fmt.Errorf("marketplace.collection is required")
	}
	if _, err := ParseCollection(c.Marketplace.Collection); err != nil {
		return err
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Fetch.Attempts <= 0 {
		return fmt.Errorf("fetch.attempts must be greater than zero")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChannelID == "" {
			return fmt.Errorf("telegram.channel_id is required when telegram is enabled")
		}
	}
	return nil
}

// ParseCollection validates a "BLOCKCHAIN-0xADDRESS" collection identifier.
// The marketplace expects the address exactly as configured, so the id is
// returned unmodified.
func ParseCollection(id string) (string, error) {
	chain, addr, ok := strings.Cut(id, "-")
	if !ok || chain == "" {
		return "", fmt.Errorf("marketplace.collection must look like BLOCKCHAIN-0xADDRESS, got %q", id)
	}
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("marketplace.collection contract address %q is not a valid hex address", addr)
	}
	return id, nil
}
