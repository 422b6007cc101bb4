// Package config loads service configuration from defaults, an optional
// YAML file and AURUMDESK_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig configures the optional processed-event cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the optional notification dispatcher.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// PaymentsConfig configures the webhook boundary.
type PaymentsConfig struct {
	WebhookSecret      string        `mapstructure:"webhook_secret"`
	SignatureTolerance time.Duration `mapstructure:"signature_tolerance"`
}

// PricingConfig carries the calculation engine rates.
type PricingConfig struct {
	ProcessingFeeRate string        `mapstructure:"processing_fee_rate"`
	TaxRate           string        `mapstructure:"tax_rate"`
	ShippingFee       string        `mapstructure:"shipping_fee"`
	InsuranceFee      string        `mapstructure:"insurance_fee"`
	CatalogTimeout    time.Duration `mapstructure:"catalog_timeout"`
}

// AuthConfig configures bearer-token validation.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Config is the full service configuration.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// Load reads configuration. path may be empty; environment variables
// override file values either way.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=aurumdesk dbname=aurumdesk sslmode=disable")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "aurumdesk.notifications")
	v.SetDefault("payments.signature_tolerance", 5*time.Minute)
	// Secrets have no usable default, but the keys must be registered for
	// environment overrides to reach Unmarshal.
	v.SetDefault("payments.webhook_secret", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("pricing.processing_fee_rate", "0.05")
	v.SetDefault("pricing.tax_rate", "0.0825")
	v.SetDefault("pricing.shipping_fee", "0")
	v.SetDefault("pricing.insurance_fee", "0")
	v.SetDefault("pricing.catalog_timeout", 3*time.Second)

	v.SetEnvPrefix("AURUMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Payments.WebhookSecret == "" {
		return nil, fmt.Errorf("payments.webhook_secret is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return &cfg, nil
}
