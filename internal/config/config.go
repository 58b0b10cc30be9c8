package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var ErrConfigNotLoaded = errors.New("config not loaded")

type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	DBUrl       string `env:"DB_URL" env-required:"true"`
	JWTSecret   string `env:"JWT_SECRET" env-required:"true"`
	AppEnv      string `env:"APP_ENV" env-default:"production"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	AppTimezone string `env:"APP_TIMEZONE" env-default:"UTC"`
	CORSOrigins string `env:"CORS_ORIGINS" env-default:"*"`

	Redis struct {
		Addr     string `env:"ADDR"`
		Password string `env:"PASSWORD"`
		DB       int    `env:"DB" env-default:"0"`
	} `env-prefix:"REDIS_"`

	Supabase struct {
		URL        string `env:"URL"`
		Bucket     string `env:"BUCKET"`
		ServiceKey string `env:"SERVICE_KEY"`
	} `env-prefix:"SUPABASE_"`

	location *time.Location
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, configNotLoadedErr("read environment: %w", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, configNotLoadedErr("JWT_SECRET is required")
	}
	cfg.AppEnv = normalizeEnv(cfg.AppEnv)

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.AppTimezone))
	if err != nil {
		return nil, configNotLoadedErr("APP_TIMEZONE: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

// Location is the zone used to resolve calendar days and weekday availability.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) RedisEnabled() bool {
	return c != nil && strings.TrimSpace(c.Redis.Addr) != ""
}

func (c *Config) StorageEnabled() bool {
	return c != nil && c.Supabase.URL != "" && c.Supabase.Bucket != "" && c.Supabase.ServiceKey != ""
}

func configNotLoadedErr(format string, args ...any) error {
	return errors.Join(fmt.Errorf(format, args...), ErrConfigNotLoaded)
}
