// Package config loads runtime settings from .env and the process
// environment. Env names follow the ones the service has always used
// (DATABASE_URL, JWT_SECRET, ...).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig: Addr kosong = guard duplikat pakai cek DB saja.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MIN", 5)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 24*60)
	v.SetDefault("REFRESH_TOKEN_TTL_DAY", 7)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		Server: ServerConfig{
			Port: v.GetInt("PORT"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MIN")) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("REFRESH_TOKEN_TTL_DAY")) * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be within 1-65535")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.IsProduction() && (c.Auth.JWTSecret == "dev-secret" || len(c.Auth.JWTSecret) < 16) {
		return fmt.Errorf("JWT_SECRET must be set (16+ chars) in production")
	}
	return nil
}
