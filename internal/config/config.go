package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=tastyfruit port=5432 sslmode=disable"

type Config struct {
	AppEnv             string        `mapstructure:"APP_ENV"`
	HTTPPort           string        `mapstructure:"HTTP_PORT"`
	DatabaseDSN        string        `mapstructure:"DATABASE_DSN"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTTTL             time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ProductImagePath   string        `mapstructure:"PRODUCT_IMAGE_PATH"` // local bucket root for uploaded images
	PublicAssetBaseURL string        `mapstructure:"PUBLIC_ASSET_BASE_URL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LoginRatePerMinute int           `mapstructure:"LOGIN_RATE_PER_MINUTE"`
}

var defaults = map[string]any{
	"APP_ENV":               "development",
	"HTTP_PORT":             "8080",
	"DATABASE_DSN":          defaultDSN,
	"JWT_SECRET":            "",
	"JWT_TTL":               "24h",
	"CORS_ALLOWED_ORIGINS":  "http://localhost:3000",
	"PRODUCT_IMAGE_PATH":    "./uploads",
	"PUBLIC_ASSET_BASE_URL": "/assets",
	"REDIS_ADDR":            "",
	"LOG_LEVEL":             "info",
	"LOGIN_RATE_PER_MINUTE": 10,
}

// Load reads configuration from the environment and an optional .env file
// in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.LoginRatePerMinute <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// Warnings lists settings that are fine for local development but not for production.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaults["CORS_ALLOWED_ORIGINS"] {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	if c.RedisAddr == "" {
		out = append(out, "REDIS_ADDR is empty, logout will not revoke tokens")
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
