package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefix NEXUSDATA_, nested keys joined
// with underscores, e.g. NEXUSDATA_QUEUE_CAPACITY) take precedence over
// values from the config file, which takes precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/nexusdata")

	v.SetEnvPrefix("NEXUSDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the config against the struct validation tags plus the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The selected store driver must carry its own settings.
	switch cfg.Store.Driver {
	case "file":
		if cfg.Store.File.Dir == "" {
			return errors.New("invalid configuration: store.file.dir is required for the file driver")
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return errors.New("invalid configuration: store.redis.addr is required for the redis driver")
		}
	case "postgres":
		if cfg.Store.Postgres.URL == "" {
			return errors.New("invalid configuration: store.postgres.url is required for the postgres driver")
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("queue.capacity", 100)
	v.SetDefault("queue.poll_interval_seconds", 1)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.file.dir", "data/tasks")
	v.SetDefault("store.redis.addr", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.postgres.url", "")

	v.SetDefault("callback.timeout_seconds", 30)

	v.SetDefault("retention.max_age_hours", 720)
	v.SetDefault("retention.sweep_interval_minutes", 60)

	v.SetDefault("mask.aes_passphrase", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.embedding_model", "text-embedding-004")
}
