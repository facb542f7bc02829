package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"finboard/internal/configstore"
	"finboard/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP API the dashboard frontend talks to.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig locates the durable state directory.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// ProvidersConfig carries upstream connectivity plus optional default
// credentials consumed on first run.
type ProvidersConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	AlphaVantageKey string        `mapstructure:"alphavantage_key"`
	AlphaVantageURL string        `mapstructure:"alphavantage_url"`
	NewsDataKey     string        `mapstructure:"newsdata_key"`
	NewsDataURL     string        `mapstructure:"newsdata_url"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINBOARD")
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
	v.SetDefault("app.name", "finboard")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.dir", defaultStateDir())

	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("cache.capacity", 512)

	v.SetDefault("providers.request_timeout", "30s")
	v.SetDefault("providers.alphavantage_url", "https://www.alphavantage.co/query")
	v.SetDefault("providers.newsdata_url", "https://newsdata.io/api/1")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".finboard"
	}
	return filepath.Join(home, ".finboard")
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
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than zero")
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity cannot be negative")
	}
	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("providers.request_timeout must be greater than zero")
	}
	return nil
}

// DefaultProviderConfigs translates environment-supplied credentials into
// seed configs. Placeholder values are filtered by the config store.
func (c *Config) DefaultProviderConfigs() []configstore.ProviderConfig {
	return []configstore.ProviderConfig{
		{
			Provider: configstore.ProviderAlphaVantage,
			APIKey:   c.Providers.AlphaVantageKey,
			BaseURL:  c.Providers.AlphaVantageURL,
			Name:     "Alpha Vantage",
		},
		{
			Provider: configstore.ProviderNewsData,
			APIKey:   c.Providers.NewsDataKey,
			BaseURL:  c.Providers.NewsDataURL,
			Name:     "NewsData.io",
		},
	}
}
