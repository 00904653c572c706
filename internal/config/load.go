package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from the config file and use the LINGOSHOP_
// prefix (e.g. LINGOSHOP_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LINGOSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about; secrets have no default
	// value, so bind them explicitly.
	v.MustBindEnv("database.url")
	v.MustBindEnv("auth.jwt_secret")
	v.MustBindEnv("gateway.endpoint")
	v.MustBindEnv("gateway.access_token")
	v.MustBindEnv("providers.gemini_api_key")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for everything that has a sane
// deployment-independent value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.worker_count", 1)
	v.SetDefault("task.stuck_task_age_minutes", 10)
	v.SetDefault("task.task_expiry_hours", 24)
	v.SetDefault("task.progress_flush_percent", 5)

	v.SetDefault("gateway.max_requests_per_second", 2)
	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.retry_delay_millis", 1000)

	v.SetDefault("providers.gemini_model", "gemini-2.0-flash")

	v.SetDefault("sync.locales", []string{"en"})
	v.SetDefault("sync.page_size", 250)
}
