// Package config loads service configuration from defaults, an optional
// TOML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// DefaultFileName is read from the working directory when no path is given.
const DefaultFileName = "satgraffin.toml"

// DefaultJWTSecret signs admin tokens when JWT_SECRET is unset.
const DefaultJWTSecret = "development-secret-change-in-production"

// Run modes
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Config is the complete service configuration.
type Config struct {
	Site      Site      `toml:"site"`
	Chunking  Chunking  `toml:"chunking"`
	Embedding Embedding `toml:"embedding"`
	LLM       LLM       `toml:"llm"`
	Storage   Storage   `toml:"storage"`
	Backends  Backends  `toml:"backends"`
	Server    Server    `toml:"server"`
	Worker    Worker    `toml:"worker"`
	Admin     Admin     `toml:"admin"`
	Logging   Logging   `toml:"logging"`
}

// Site configures what is fetched and how politely.
type Site struct {
	HomepageURL       string  `toml:"homepage_url"`
	MaxPages          int     `toml:"max_pages"`
	MinWords          int     `toml:"min_words"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// Chunking configures the splitter. Sizes are in characters.
type Chunking struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// Embedding configures the embedding service.
type Embedding struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// LLM configures the answer model and chain.
type LLM struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Temperature float64 `toml:"temperature"`
	Chain       string  `toml:"chain"`
}

// Storage configures where pages and the vector index are persisted.
type Storage struct {
	ContentDir string `toml:"content_dir"`
	VectorDir  string `toml:"vector_dir"`
}

// Backends selects shared lock and queue backends. Both empty means in-process.
type Backends struct {
	RedisURL    string `toml:"redis_url"`
	DatabaseURL string `toml:"database_url"`
}

// Server configures the HTTP listener.
type Server struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Mode           string   `toml:"mode"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Worker configures background refresh processing.
type Worker struct {
	Concurrency       int `toml:"concurrency"`
	DequeueTimeoutSec int `toml:"dequeue_timeout_sec"`
	LockTTLSec        int `toml:"lock_ttl_sec"`
	ReloadIntervalSec int `toml:"reload_interval_sec"`
}

// Admin configures the admin API.
type Admin struct {
	JWTSecret    string `toml:"jwt_secret"`
	PasswordHash string `toml:"password_hash"`
}

// Logging configures the default slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Site: Site{
			HomepageURL:       "https://mosdac.gov.in/",
			MaxPages:          60,
			MinWords:          120,
			RequestsPerSecond: 2,
		},
		Chunking: Chunking{
			Size:    300,
			Overlap: 100,
		},
		Embedding: Embedding{
			Provider: string(domain.AIProviderOllama),
			Model:    "all-minilm",
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLM{
			Provider:    string(domain.AIProviderGemini),
			Model:       "gemini-2.5-flash",
			Temperature: 0.3,
			Chain:       string(domain.AnswerChainMapReduce),
		},
		Storage: Storage{
			ContentDir: "processed_data",
			VectorDir:  "vector_store",
		},
		Server: Server{
			Host:           "0.0.0.0",
			Port:           8000,
			Mode:           ModeAll,
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Worker: Worker{
			Concurrency:       2,
			DequeueTimeoutSec: 5,
			LockTTLSec:        300,
			ReloadIntervalSec: 10,
		},
		Admin: Admin{
			JWTSecret: DefaultJWTSecret,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// SATGRAFFIN_CONFIG and then DefaultFileName are tried; a missing
// default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("SATGRAFFIN_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultFileName
	}

	if err := cfg.loadFile(path); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Site.HomepageURL = getEnv("HOMEPAGE_URL", c.Site.HomepageURL)
	c.Site.MaxPages = getEnvInt("SCRAPER_MAX_PAGES", c.Site.MaxPages)
	c.Site.MinWords = getEnvInt("SCRAPER_MIN_WORDS", c.Site.MinWords)
	c.Site.RequestsPerSecond = getEnvFloat("SCRAPER_RPS", c.Site.RequestsPerSecond)
	c.Site.UserAgent = getEnv("SCRAPER_USER_AGENT", c.Site.UserAgent)

	c.Chunking.Size = getEnvInt("CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = getEnvInt("CHUNK_OVERLAP", c.Chunking.Overlap)

	c.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	if c.Embedding.Provider == string(domain.AIProviderOpenAI) {
		c.Embedding.APIKey = getEnv("OPENAI_API_KEY", c.Embedding.APIKey)
	}

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Chain = getEnv("ANSWER_CHAIN", c.LLM.Chain)
	switch domain.AIProvider(c.LLM.Provider) {
	case domain.AIProviderGemini:
		c.LLM.Model = getEnv("GEMINI_MODEL_NAME", c.LLM.Model)
		c.LLM.APIKey = getEnv("GOOGLE_API_KEY", c.LLM.APIKey)
	case domain.AIProviderOpenAI:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	}

	c.Storage.ContentDir = getEnv("CONTENT_DIR", c.Storage.ContentDir)
	c.Storage.VectorDir = getEnv("VECTOR_DIR", c.Storage.VectorDir)

	c.Backends.RedisURL = getEnv("REDIS_URL", c.Backends.RedisURL)
	c.Backends.DatabaseURL = getEnv("DATABASE_URL", c.Backends.DatabaseURL)

	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.Mode = getEnv("RUN_MODE", c.Server.Mode)
	c.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.DequeueTimeoutSec = getEnvInt("WORKER_DEQUEUE_TIMEOUT", c.Worker.DequeueTimeoutSec)
	c.Worker.LockTTLSec = getEnvInt("REFRESH_LOCK_TTL", c.Worker.LockTTLSec)
	c.Worker.ReloadIntervalSec = getEnvInt("RELOAD_INTERVAL", c.Worker.ReloadIntervalSec)

	c.Admin.JWTSecret = getEnv("JWT_SECRET", c.Admin.JWTSecret)
	c.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks values that would otherwise fail deep inside a service.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return fmt.Errorf("%w: unknown run mode %q (use: api, worker, or all)", domain.ErrInvalidInput, c.Server.Mode)
	}
	// Split processes only meet through the queue, so an in-process one
	// would be filled by nobody or drained by nobody.
	if c.Server.Mode != ModeAll && !c.HasSharedBackend() {
		return fmt.Errorf("%w: run mode %q needs REDIS_URL or DATABASE_URL", domain.ErrInvalidInput, c.Server.Mode)
	}
	if !domain.AnswerChain(c.LLM.Chain).IsValid() {
		return fmt.Errorf("%w: unknown answer chain %q (use: map_reduce or stuff)", domain.ErrInvalidInput, c.LLM.Chain)
	}
	if c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap %d must be below chunk size %d", domain.ErrInvalidInput, c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Site.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive", domain.ErrInvalidInput)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", domain.ErrInvalidInput, c.Server.Port)
	}
	ai := c.AISettings()
	if err := ai.Validate(); err != nil {
		return fmt.Errorf("ai settings: %w", err)
	}
	return nil
}

// AISettings returns the embedding and answer model settings.
func (c *Config) AISettings() *domain.AISettings {
	return &domain.AISettings{
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(c.Embedding.Provider),
			Model:    c.Embedding.Model,
			APIKey:   c.Embedding.APIKey,
			BaseURL:  c.Embedding.BaseURL,
		},
		LLM: domain.LLMSettings{
			Provider:    domain.AIProvider(c.LLM.Provider),
			Model:       c.LLM.Model,
			APIKey:      c.LLM.APIKey,
			BaseURL:     c.LLM.BaseURL,
			Temperature: c.LLM.Temperature,
		},
	}
}

// HasSharedBackend reports whether locks and tasks are visible across processes.
func (c *Config) HasSharedBackend() bool {
	return c.Backends.RedisURL != "" || c.Backends.DatabaseURL != ""
}

// AdminEnabled reports whether the admin API should be served.
func (c *Config) AdminEnabled() bool {
	return c.Admin.PasswordHash != ""
}

// DequeueTimeout returns the worker dequeue timeout.
func (c *Config) DequeueTimeout() time.Duration {
	return time.Duration(c.Worker.DequeueTimeoutSec) * time.Second
}

// LockTTL returns the refresh lock lease.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Worker.LockTTLSec) * time.Second
}

// ReloadInterval returns how often api mode polls the vector store revision.
func (c *Config) ReloadInterval() time.Duration {
	return time.Duration(c.Worker.ReloadIntervalSec) * time.Second
}

// NewLogger builds a slog logger writing to w with the configured level and format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Logging.Level)}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
