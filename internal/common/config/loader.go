// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SHOPIFY_CLIENT_SECRET
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "provider-verify"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-10"
	}
	if cfg.Verification.TokenTTLHours == 0 {
		cfg.Verification.TokenTTLHours = 24
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "./uploads"
	}
	if cfg.Uploads.MaxSizeBytes == 0 {
		cfg.Uploads.MaxSizeBytes = 10 * 1024 * 1024
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Secrets come from the environment, never from YAML.
	overrideFromEnv(&cfg.Shopify.StoreURL, "SHOPIFY_STORE_URL")
	overrideFromEnv(&cfg.Shopify.ClientID, "SHOPIFY_CLIENT_ID")
	overrideFromEnv(&cfg.Shopify.ClientSecret, "SHOPIFY_CLIENT_SECRET")
	overrideFromEnv(&cfg.Verification.Secret, "VERIFICATION_SECRET")
	overrideFromEnv(&cfg.Verification.FrontendURL, "FRONTEND_URL")
	overrideFromEnv(&cfg.Server.AdminToken, "ADMIN_TOKEN")
	overrideFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
}

func overrideFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Shopify.StoreURL == "" {
		return fmt.Errorf("shopify.store_url is required")
	}
	if cfg.Shopify.ClientID == "" || cfg.Shopify.ClientSecret == "" {
		return fmt.Errorf("shopify client credentials are required")
	}
	if cfg.Verification.Secret == "" {
		return fmt.Errorf("verification.secret is required")
	}
	if cfg.Verification.FrontendURL == "" {
		return fmt.Errorf("verification.frontend_url is required")
	}
	return nil
}
