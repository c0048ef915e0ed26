// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider" mapstructure:"provider"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Universe  UniverseConfig  `yaml:"universe" mapstructure:"universe"`
	Screener  ScreenerConfig  `yaml:"screener" mapstructure:"screener"`
	Valuation ValuationConfig `yaml:"valuation" mapstructure:"valuation"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ProviderConfig configures the market-data provider client.
type ProviderConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// CacheConfig configures the (ticker, timeframe) quote cache.
type CacheConfig struct {
	TTLMinutes int  `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	Persistent bool `yaml:"persistent" mapstructure:"persistent"` // back the cache with the store
}

// StoreConfig configures the persistence backend for screen runs.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// UniverseConfig configures ticker-universe discovery.
type UniverseConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Default string `yaml:"default" mapstructure:"default"`
}

// ScreenerConfig configures composite scoring.
type ScreenerConfig struct {
	Philosophy     string `yaml:"philosophy" mapstructure:"philosophy"`
	PhilosophyFile string `yaml:"philosophy_file" mapstructure:"philosophy_file"`
}

// ValuationConfig configures DCF defaults and the sensitivity grid.
type ValuationConfig struct {
	DiscountRate        float64 `yaml:"discount_rate" mapstructure:"discount_rate"`
	GrowthRate          float64 `yaml:"growth_rate" mapstructure:"growth_rate"`
	TerminalGrowthRate  float64 `yaml:"terminal_growth_rate" mapstructure:"terminal_growth_rate"`
	ProjectionYears     int     `yaml:"projection_years" mapstructure:"projection_years"`
	DiscountVariation   float64 `yaml:"discount_variation" mapstructure:"discount_variation"`
	GrowthRateVariation float64 `yaml:"growth_rate_variation" mapstructure:"growth_rate_variation"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STOCKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (compatible; stocks-cli/1.0)")
	v.SetDefault("provider.timeout_secs", 15)
	v.SetDefault("provider.rate_per_sec", 2)
	v.SetDefault("provider.rate_burst", 4)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("cache.persistent", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "stocks.db")
	v.SetDefault("universe.dir", "data")
	v.SetDefault("universe.default", "dow30")
	v.SetDefault("screener.philosophy", "long-term-value")
	v.SetDefault("valuation.discount_rate", 0.10)
	v.SetDefault("valuation.growth_rate", 0.03)
	v.SetDefault("valuation.terminal_growth_rate", 0.02)
	v.SetDefault("valuation.projection_years", 5)
	v.SetDefault("valuation.discount_variation", 0.02)
	v.SetDefault("valuation.growth_rate_variation", 0.01)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
