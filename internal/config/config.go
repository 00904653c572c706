package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
	Gateway   GatewayConfig   `mapstructure:"gateway"   validate:"required"`
	Providers ProvidersConfig `mapstructure:"providers" validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"      validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains shop-session token validation settings.
// Tokens are issued by the storefront platform during app installation;
// this service only validates them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// TaskConfig contains settings for the background task processor.
type TaskConfig struct {
	QueueSize             int `mapstructure:"queue_size"               validate:"required,gt=0"`
	WorkerCount           int `mapstructure:"worker_count"             validate:"required,gt=0"`
	StuckTaskAgeMinutes   int `mapstructure:"stuck_task_age_minutes"   validate:"required,gt=0"`
	TaskExpiryHours       int `mapstructure:"task_expiry_hours"        validate:"required,gt=0"`
	ProgressFlushPercent  int `mapstructure:"progress_flush_percent"   validate:"gte=0,lte=100"`
}

// GatewayConfig contains settings for the storefront GraphQL API gateway.
type GatewayConfig struct {
	Endpoint             string `mapstructure:"endpoint"                validate:"required"`
	AccessToken          string `mapstructure:"access_token"            validate:"required"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second" validate:"required,gt=0"`
	MaxRetries           int    `mapstructure:"max_retries"             validate:"gte=0"`
	RetryDelayMillis     int    `mapstructure:"retry_delay_millis"      validate:"gt=0"`
}

// ProvidersConfig contains AI provider client settings.
type ProvidersConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	GeminiModel  string `mapstructure:"gemini_model"   validate:"required"`
}

// SyncConfig contains settings for bulk synchronization and translation.
type SyncConfig struct {
	// Locales are the BCP 47 tags translations are produced and synced for.
	Locales []string `mapstructure:"locales"   validate:"required,min=1,dive,required"`

	// PageSize is the listing page size for sync runs, capped at the
	// provider maximum of 250.
	PageSize int `mapstructure:"page_size" validate:"gt=0,lte=250"`
}

// ProviderBudget overrides the default per-minute budget for one AI provider.
type ProviderBudget struct {
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute" validate:"gt=0"`
	MaxTokensPerMinute   int `mapstructure:"max_tokens_per_minute"   validate:"gt=0"`
}

// RateLimitConfig holds optional per-provider budget overrides keyed by
// provider name. Providers without an entry use the documented defaults.
type RateLimitConfig struct {
	Providers map[string]ProviderBudget `mapstructure:"providers"`
}
