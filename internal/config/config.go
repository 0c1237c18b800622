package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Callback  CallbackConfig  `mapstructure:"callback" validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
	Mask      MaskConfig      `mapstructure:"mask" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// QueueConfig bounds the admission queue and paces the dispatcher.
type QueueConfig struct {
	// Capacity is the fixed bound of the admission queue. Enqueueing onto a
	// full queue is rejected with a queue-full error.
	Capacity int `mapstructure:"capacity" validate:"required,gt=0"`

	// PollIntervalSeconds is how long the dispatcher sleeps when the queue
	// is empty before polling again.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
}

// StoreConfig selects and configures the task record store backend.
type StoreConfig struct {
	// Driver picks the persistence medium. The backends are functionally
	// interchangeable; the TaskStore contract is identical for all four.
	Driver string `mapstructure:"driver" validate:"required,oneof=memory file redis postgres"`

	File     FileStoreConfig     `mapstructure:"file"`
	Redis    RedisStoreConfig    `mapstructure:"redis"`
	Postgres PostgresStoreConfig `mapstructure:"postgres"`
}

// FileStoreConfig configures the flat-file backend.
type FileStoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisStoreConfig configures the Redis backend.
type RedisStoreConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresStoreConfig configures the PostgreSQL backend.
type PostgresStoreConfig struct {
	URL string `mapstructure:"url"`
}

// CallbackConfig bounds outbound result delivery.
type CallbackConfig struct {
	// TimeoutSeconds caps the single delivery POST. Delivery is strictly
	// best-effort and single-attempt; there is no retry queue.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// RetentionConfig makes the orphan window of undelivered results explicit:
// records that callback delivery could not dispose of survive until the
// sweeper purges them by age.
type RetentionConfig struct {
	MaxAgeHours          int `mapstructure:"max_age_hours" validate:"required,gt=0"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"required,gt=0"`
}

// MaskConfig contains masking engine settings.
type MaskConfig struct {
	// AESPassphrase seeds the PBKDF2 derivation of the AES key used by the
	// "aes" strategy.
	AESPassphrase string `mapstructure:"aes_passphrase" validate:"required,min=8"`
}

// LLMConfig contains the Gemini integration settings used by the entity
// extractor, the embedder, and OCR. Optional: when the API key is absent the
// server runs with the offline extraction schema only.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	ModelName      string `mapstructure:"model_name"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// Enabled reports whether the Gemini integration is configured.
func (c LLMConfig) Enabled() bool {
	return c.GeminiAPIKey != ""
}
