// Package config loads curator settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Port         string        `mapstructure:"port"`
	LogLevel     string        `mapstructure:"log_level"`
	APIKey       string        `mapstructure:"api_key"`
	CORSEnabled  bool          `mapstructure:"cors_enabled"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	ProfileFile  string        `mapstructure:"profile_file"`
	RedisAddr    string        `mapstructure:"redis_addr"`

	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Backend  string   `mapstructure:"backend"` // "fs" or "s3"
	BasePath string   `mapstructure:"base_path"`
	S3       S3Config `mapstructure:"s3"`
}

// S3Config mirrors storage.S3Config
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LLMConfig configures the inference endpoint
type LLMConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	ChatModel           string `mapstructure:"chat_model"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

var envBindings = map[string]string{
	"port":                         "PORT",
	"log_level":                    "LOG_LEVEL",
	"api_key":                      "API_KEY",
	"cors_enabled":                 "CORS_ENABLED",
	"fetch_timeout":                "FETCH_TIMEOUT",
	"profile_file":                 "PROFILE_FILE",
	"redis_addr":                   "REDIS_ADDR",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.name":                "DB_NAME",
	"storage.backend":              "STORAGE_BACKEND",
	"storage.base_path":            "STORAGE_BASE_PATH",
	"storage.s3.endpoint":          "S3_ENDPOINT",
	"storage.s3.region":            "S3_REGION",
	"storage.s3.bucket":            "S3_BUCKET",
	"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"storage.s3.use_path_style":    "S3_USE_PATH_STYLE",
	"llm.base_url":                 "OPENAI_BASE_URL",
	"llm.api_key":                  "OPENAI_API_KEY",
	"llm.chat_model":               "LLM_CHAT_MODEL",
	"llm.embedding_model":          "LLM_EMBEDDING_MODEL",
	"llm.embedding_dimensions":     "EMBEDDING_DIMENSIONS",
	"tracing.enabled":              "OTEL_ENABLED",
	"tracing.endpoint":             "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Load reads cfgFile, or curator.yaml from the usual places when cfgFile is
// empty, then overlays the environment. A missing search-path file is not an
// error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("curator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/curator")
		v.AddConfigPath("configs")
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.FillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_enabled", true)
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "docutag")
	v.SetDefault("database.name", "docutag")
	v.SetDefault("storage.backend", StorageFS)
	v.SetDefault("storage.base_path", "./storage")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
}

// FillDefaults applies defaults to zero-valued fields.
func (c *Config) FillDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFS
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "./storage"
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "gpt-4o-mini"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if c.LLM.EmbeddingDimensions <= 0 {
		c.LLM.EmbeddingDimensions = 768
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	switch c.Storage.Backend {
	case StorageFS, StorageS3:
	default:
		return fmt.Errorf("invalid storage backend %q (must be fs or s3)", c.Storage.Backend)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
}
