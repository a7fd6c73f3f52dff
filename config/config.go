package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Source    SourceConfig    `mapstructure:"source"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MonitorConfig holds price monitoring configuration
type MonitorConfig struct {
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
	RetentionWindow      time.Duration `mapstructure:"retention_window"`
	RefreshInterval      time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	TrendWindow          time.Duration `mapstructure:"trend_window"`
	PredictionHorizon    time.Duration `mapstructure:"prediction_horizon"`
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"`
	ChangeAlertThreshold float64       `mapstructure:"change_alert_threshold"`
	PrewatchCatalog      bool          `mapstructure:"prewatch_catalog"`
}

// SourceConfig holds simulated price source configuration
type SourceConfig struct {
	Seed            int64   `mapstructure:"seed"`
	SaleRate        float64 `mapstructure:"sale_rate"`
	InStockRate     float64 `mapstructure:"in_stock_rate"`
	UnavailableRate float64 `mapstructure:"unavailable_rate"`
	DriftPct        float64 `mapstructure:"drift_pct"`
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PRICE_MONITOR")
	bindEnvVars(v)

	// Config file is optional; defaults and env vars carry the rest
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.enabled", "PRICE_MONITOR_TELEMETRY_ENABLED")
	v.BindEnv("monitor.refresh_interval", "PRICE_MONITOR_REFRESH_INTERVAL")
	v.BindEnv("source.seed", "PRICE_MONITOR_SOURCE_SEED")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Monitor defaults
	v.SetDefault("monitor.cache_ttl", 30*time.Minute)
	v.SetDefault("monitor.retention_window", 30*24*time.Hour)
	v.SetDefault("monitor.refresh_interval", 5*time.Minute)
	v.SetDefault("monitor.fetch_timeout", 10*time.Second)
	v.SetDefault("monitor.trend_window", 7*24*time.Hour)
	v.SetDefault("monitor.prediction_horizon", 7*24*time.Hour)
	v.SetDefault("monitor.max_concurrent_fetches", 4)
	v.SetDefault("monitor.change_alert_threshold", 5.0)
	v.SetDefault("monitor.prewatch_catalog", true)

	// Source defaults
	v.SetDefault("source.seed", 1)
	v.SetDefault("source.sale_rate", 0.3)
	v.SetDefault("source.in_stock_rate", 0.9)
	v.SetDefault("source.unavailable_rate", 0.05)
	v.SetDefault("source.drift_pct", 0.03)

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst_size", 20)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}
