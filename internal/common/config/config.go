// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Shopify      ShopifyConfig      `mapstructure:"shopify"`
	Verification VerificationConfig `mapstructure:"verification"`
	Uploads      UploadConfig       `mapstructure:"uploads"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Integrations IntegrationConfig  `mapstructure:"integrations"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	AdminToken   string `mapstructure:"admin_token"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ShopifyConfig holds access to the store that is the system of record for
// every applicant. Tokens are short-lived client-credentials grants.
type ShopifyConfig struct {
	StoreURL     string `mapstructure:"store_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	APIVersion   string `mapstructure:"api_version"`
}

// VerificationConfig holds the token codec settings and the public URL the
// verification link points back to.
type VerificationConfig struct {
	Secret        string `mapstructure:"secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	FrontendURL   string `mapstructure:"frontend_url"`
}

func (v VerificationConfig) TokenTTL() time.Duration {
	return time.Duration(v.TokenTTLHours) * time.Hour
}

// UploadConfig holds the license document store settings.
type UploadConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IntegrationConfig holds settings for email and operator notifications.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig holds the span exporter settings. An empty endpoint
// disables export.
type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
