// Package config loads runtime settings from BUSTICKET_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BUSTICKET_"

type Config struct {
	Env      string `koanf:"env" validate:"required,oneof=development production test"`
	HTTPAddr string `koanf:"http_addr" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// DatabaseURL selects the driver by scheme: postgres://, mysql:// or sqlite://.
	DatabaseURL string `koanf:"database_url" validate:"required"`
	// RedisAddr is optional; the bus catalogue is served uncached without it.
	RedisAddr   string        `koanf:"redis_addr"`
	BusCacheTTL time.Duration `koanf:"bus_cache_ttl" validate:"required"`

	JWTAccessSecret  string        `koanf:"jwt_access_secret" validate:"required"`
	JWTRefreshSecret string        `koanf:"jwt_refresh_secret" validate:"required"`
	AccessTTL        time.Duration `koanf:"access_ttl" validate:"required"`
	RefreshTTL       time.Duration `koanf:"refresh_ttl" validate:"required"`
	BcryptCost       int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`

	CORSAllowedOrigins  []string      `koanf:"cors_allowed_origins" validate:"required,min=1"`
	MaintenanceSchedule string        `koanf:"maintenance_schedule" validate:"required"`
	ShutdownTimeout     time.Duration `koanf:"shutdown_timeout" validate:"required"`
}

func defaults() Config {
	return Config{
		Env:                 "development",
		HTTPAddr:            ":8080",
		LogLevel:            "info",
		BusCacheTTL:         10 * time.Minute,
		AccessTTL:           15 * time.Minute,
		RefreshTTL:          7 * 24 * time.Hour,
		BcryptCost:          10,
		CORSAllowedOrigins:  []string{"*"},
		MaintenanceSchedule: "0 */5 * * * *",
		ShutdownTimeout:     10 * time.Second,
	}
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadMigration is Load for tools that only talk to the database; secrets
// and HTTP settings are not required.
func LoadMigration() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := validator.New().StructPartial(cfg, "Env", "LogLevel", "DatabaseURL"); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := defaults()
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			// list values such as cors_allowed_origins arrive comma separated
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }
