package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-move-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	CMC       CMCConfig       `mapstructure:"cmc"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// WatcherConfig fixes the tracked asset list and the significance filter.
type WatcherConfig struct {
	Symbols      []string `mapstructure:"symbols"`
	Policy       string   `mapstructure:"policy"`
	ThresholdPct float64  `mapstructure:"threshold_pct"`
}

// SchedulerConfig governs the two cycle cadences.
type SchedulerConfig struct {
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// CMCConfig captures CoinMarketCap connectivity.
type CMCConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Debug          bool          `mapstructure:"debug"`
}

// TelegramConfig describes the dispatch destination. An empty chat id or bot
// token disables dispatch without affecting the monitoring cycles.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CMCWATCHER")
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
	v.SetDefault("app.name", "cmcwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("watcher.symbols", []string{"BTC", "ETH", "TRX"})
	v.SetDefault("watcher.policy", "symmetric")
	v.SetDefault("watcher.threshold_pct", 5.0)

	v.SetDefault("scheduler.check_interval", "15m")
	v.SetDefault("scheduler.snapshot_interval", "6h")

	v.SetDefault("cmc.base_url", "https://pro-api.coinmarketcap.com")
	v.SetDefault("cmc.api_key", "")
	v.SetDefault("cmc.request_timeout", "10s")
	v.SetDefault("cmc.user_agent", "cmcwatcher/1.0")
	v.SetDefault("cmc.debug", false)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", "10s")
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

// Validate performs basic sanity checks on the configuration values. A
// missing API key is fatal: the watcher cannot operate without one.
func (c *Config) Validate() error {
	if c.CMC.APIKey == "" {
		return fmt.Errorf("cmc.api_key is required")
	}
	if len(c.Watcher.Symbols) == 0 {
		return fmt.Errorf("watcher.symbols must list at least one asset")
	}
	switch c.Watcher.Policy {
	case "symmetric":
		if c.Watcher.ThresholdPct <= 0 {
			return fmt.Errorf("watcher.threshold_pct must be greater than zero")
		}
	case "non_negative":
	default:
		return fmt.Errorf("watcher.policy must be one of symmetric, non_negative")
	}
	if c.Scheduler.CheckInterval <= 0 {
		return fmt.Errorf("scheduler.check_interval must be greater than zero")
	}
	if c.Scheduler.SnapshotInterval <= 0 {
		return fmt.Errorf("scheduler.snapshot_interval must be greater than zero")
	}
	return nil
}

// DispatchEnabled reports whether a Telegram destination is fully configured.
func (c *Config) DispatchEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
