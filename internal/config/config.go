package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Qdrant   QdrantConfig
	Storage  StorageConfig
	Worker   WorkerConfig

	// DotEnvLoaded reports whether a .env file was read. Load runs before the
	// logger exists, so callers log it.
	DotEnvLoaded bool `ignored:"true"`
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3000"`
	Env  string `envconfig:"ENV" default:"development"`
}

type DatabaseConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"postgres"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName   string `envconfig:"DB_NAME" default:"cv_formatter"`
	// Path is only used by the sqlite driver.
	Path string `envconfig:"DB_PATH" default:"cv_formatter.db"`
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
}

type LLMConfig struct {
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	EmbeddingModel  string        `envconfig:"GEMINI_EMBEDDING_MODEL" default:"text-embedding-004"`
	CallTimeout     time.Duration `envconfig:"LLM_CALL_TIMEOUT" default:"120s"`
	Temperature     float64       `envconfig:"LLM_TEMPERATURE" default:"0.1"`
}

type QdrantConfig struct {
	URL        string `envconfig:"QDRANT_URL"`
	APIKey     string `envconfig:"QDRANT_API_KEY"`
	Collection string `envconfig:"QDRANT_COLLECTION" default:"cv_formatter_talent"`
}

type StorageConfig struct {
	Backend     string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadPath  string `envconfig:"UPLOAD_PATH" default:"./uploads"`
	MaxFileSize int64  `envconfig:"MAX_FILE_SIZE" default:"10485760"`
	MinIO       MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"cv-formatter"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type WorkerConfig struct {
	Concurrency       int           `envconfig:"WORKER_CONCURRENCY" default:"3"`
	QueueSize         int           `envconfig:"WORKER_QUEUE_SIZE" default:"100"`
	RetryMaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"2s"`
	JobTimeout        time.Duration `envconfig:"JOB_TIMEOUT" default:"10m"`
	ReaperInterval    time.Duration `envconfig:"REAPER_INTERVAL" default:"1m"`
	StaleAfter        time.Duration `envconfig:"STALE_AFTER" default:"15m"`
}

func Load() (*Config, error) {
	dotEnvErr := godotenv.Load()

	cfg := &Config{DotEnvLoaded: dotEnvErr == nil}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Worker.StaleAfter <= cfg.Worker.JobTimeout {
		return nil, fmt.Errorf("STALE_AFTER (%s) must be greater than JOB_TIMEOUT (%s)", cfg.Worker.StaleAfter, cfg.Worker.JobTimeout)
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}
