package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env   string `mapstructure:"env"`
	Port  string `mapstructure:"port"`
	DBURL string `mapstructure:"db_url"`

	AccessTokenSecret  string `mapstructure:"access_token_secret"`
	RefreshTokenSecret string `mapstructure:"refresh_token_secret"`
	DeviceHashSecret   string `mapstructure:"device_hash_secret"`

	// VerifyKeys maps a key id (kid header) to its verification secret.
	// Empty is fine; verification then always falls back to the static
	// secrets above.
	VerifyKeys   map[string]string `mapstructure:"verify_keys"`
	SigningKeyID string            `mapstructure:"signing_key_id"`

	AccessExpiryMin  int `mapstructure:"access_token_expiry"`
	RefreshExpiryMin int `mapstructure:"refresh_token_expiry"`

	MaxTokensPerFamily int `mapstructure:"max_tokens_per_family"`
	FamilySizeWarning  int `mapstructure:"family_size_warning"`

	CleanupIntervalMin int `mapstructure:"cleanup_interval"`
	CleanupGraceHours  int `mapstructure:"cleanup_grace"`
	CleanupLimit       int `mapstructure:"cleanup_limit"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("access_token_expiry", 30)
	v.SetDefault("refresh_token_expiry", 10080)
	v.SetDefault("max_tokens_per_family", 5)
	v.SetDefault("family_size_warning", 10)
	v.SetDefault("cleanup_interval", 60)
	v.SetDefault("cleanup_grace", 24)
	v.SetDefault("cleanup_limit", 1000)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so the keys without defaults are bound explicitly.
	for _, key := range []string{"db_url", "access_token_secret", "refresh_token_secret", "device_hash_secret", "signing_key_id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// A config file is optional; environment variables alone are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for _, required := range []struct{ key, val string }{
		{"DB_URL", cfg.DBURL},
		{"ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret},
		{"REFRESH_TOKEN_SECRET", cfg.RefreshTokenSecret},
		{"DEVICE_HASH_SECRET", cfg.DeviceHashSecret},
	} {
		if required.val == "" {
			return nil, fmt.Errorf("missing required configuration: %s", required.key)
		}
	}

	return &cfg, nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessExpiryMin) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshExpiryMin) * time.Minute
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMin) * time.Minute
}

func (c *Config) CleanupGrace() time.Duration {
	return time.Duration(c.CleanupGraceHours) * time.Hour
}
