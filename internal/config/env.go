package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProviderConfig selects the vision engine and its retry envelope.
type ProviderConfig struct {
	Engine              string // "openai"|"anthropic"
	Model               string
	MaxTokens           int
	RequestTimeout      time.Duration
	TotalBudget         time.Duration
	MaxAttempts         int
	RetryBaseDelay      time.Duration
	RetryJitter         time.Duration
	RetryBackoffFactor  float64
	MaxInflightPerModel int
}

// RenderConfig controls PDF rasterization.
type RenderConfig struct {
	DPI         int
	JPEGQuality int
	AllPages    bool
	MaxPages    int
	Concurrency int
}

// ExtractConfig controls validation and normalization policy.
type ExtractConfig struct {
	DayFirst      bool
	Tolerance     float64
	MaxFutureDays int
}

// PromptConfig overrides the built-in extraction prompt.
type PromptConfig struct {
	TemplateFile string
	Fields       []string
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	DLQStream    string
	PollInterval time.Duration
	ResultTTL    time.Duration
}

// WorkerConfig sizes the async job pool.
type WorkerConfig struct {
	Enabled     bool
	Concurrency int
	PageWorkers int
}

// StorageConfig holds S3 connectivity for document references and results.
type StorageConfig struct {
	Bucket       string
	Region       string
	ResultPrefix string
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string
	MaxUploadMB     int
	ShutdownTimeout time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig
	Axiom    AxiomConfig
	Provider ProviderConfig
	Render   RenderConfig
	Extract  ExtractConfig
	Prompt   PromptConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/invoicevision.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_invoicevision",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	engine := strings.ToLower(getEnv("PROVIDER_ENGINE", "openai"))
	defaultModel := "gpt-4o"
	if engine == "anthropic" {
		defaultModel = "claude-3-5-sonnet-latest"
	}
	cfg.Provider = ProviderConfig{
		Engine:              engine,
		Model:               getEnv("PROVIDER_MODEL", defaultModel),
		MaxTokens:           parseInt(getEnv("PROVIDER_MAX_TOKENS", "4096"), 4096),
		RequestTimeout:      parseDuration(getEnv("REQUEST_TIMEOUT", "60s"), 60*time.Second),
		TotalBudget:         parseDuration(getEnv("PAGE_TOTAL_TIMEOUT", "120s"), 120*time.Second),
		MaxAttempts:         parseInt(getEnv("PROVIDER_MAX_ATTEMPTS", "3"), 3),
		RetryBaseDelay:      parseDuration(getEnv("RETRY_BASE_DELAY", "2s"), 2*time.Second),
		RetryJitter:         parseDuration(getEnv("RETRY_JITTER", "200ms"), 200*time.Millisecond),
		RetryBackoffFactor:  parseFloat(getEnv("RETRY_BACKOFF_FACTOR", "2.0"), 2.0),
		MaxInflightPerModel: parseInt(getEnv("MAX_INFLIGHT_PER_MODEL", "2"), 2),
	}

	cfg.Render = RenderConfig{
		DPI:         parseInt(getEnv("RENDER_DPI", "150"), 150),
		JPEGQuality: parseInt(getEnv("RENDER_JPEG_QUALITY", "85"), 85),
		AllPages:    parseBool(getEnv("RENDER_ALL_PAGES", "false")),
		MaxPages:    parseInt(getEnv("RENDER_MAX_PAGES", "10"), 10),
		Concurrency: parseInt(getEnv("RENDER_CONCURRENCY", "4"), 4),
	}

	cfg.Extract = ExtractConfig{
		DayFirst:      parseBool(getEnv("DATE_DAY_FIRST", "true")),
		Tolerance:     parseFloat(getEnv("TOTALS_TOLERANCE", "0.01"), 0.01),
		MaxFutureDays: parseInt(getEnv("MAX_FUTURE_DAYS", "365"), 365),
	}

	cfg.Prompt = PromptConfig{
		TemplateFile: getEnv("PROMPT_TEMPLATE_FILE", ""),
		Fields:       parseList(getEnv("PROMPT_FIELDS", "")),
	}

	cfg.Queue = QueueConfig{
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:       getEnv("QUEUE_STREAM", "jobs:invoices"),
		Group:        getEnv("QUEUE_GROUP", "workers:extract"),
		DLQStream:    getEnv("QUEUE_DLQ_STREAM", "jobs:invoices:dlq"),
		PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "100ms"), 100*time.Millisecond),
		ResultTTL:    parseDuration(getEnv("RESULT_TTL", "24h"), 24*time.Hour),
	}

	cfg.Worker = WorkerConfig{
		Enabled:     parseBool(getEnv("RUN_WORKER", "0")),
		Concurrency: parseInt(getEnv("WORKER_CONCURRENCY", "4"), 4),
		PageWorkers: parseInt(getEnv("PAGE_WORKERS", "2"), 2),
	}

	cfg.Storage = StorageConfig{
		Bucket:       getEnv("S3_BUCKET", ""),
		Region:       getEnv("AWS_REGION", "eu-central-1"),
		ResultPrefix: getEnv("S3_RESULT_PREFIX", "results/"),
	}

	cfg.Server = ServerConfig{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		MaxUploadMB:     parseInt(getEnv("MAX_UPLOAD_MB", "25"), 25),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
