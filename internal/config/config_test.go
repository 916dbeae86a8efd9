package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "satgraffin.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SATGRAFFIN_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://mosdac.gov.in/", cfg.Site.HomepageURL)
	assert.Equal(t, 60, cfg.Site.MaxPages)
	assert.Equal(t, 120, cfg.Site.MinWords)
	assert.Equal(t, 300, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, "map_reduce", cfg.LLM.Chain)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ModeAll, cfg.Server.Mode)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "processed_data", cfg.Storage.ContentDir)
	assert.Equal(t, "vector_store", cfg.Storage.VectorDir)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL())
	assert.False(t, cfg.AdminEnabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[site]
homepage_url = "https://example.org/"
max_pages = 5

[llm]
provider = "ollama"
model = "llama3"
chain = "stuff"

[server]
port = 9000
allowed_origins = ["https://app.example.org"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/", cfg.Site.HomepageURL)
	assert.Equal(t, 5, cfg.Site.MaxPages)
	assert.Equal(t, 120, cfg.Site.MinWords, "keys missing from the file keep their defaults")
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "stuff", cfg.LLM.Chain)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.org"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9000
`)
	t.Setenv("PORT", "9100")
	t.Setenv("RUN_MODE", "worker")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$hash")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, ModeWorker, cfg.Server.Mode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Backends.RedisURL)
	assert.True(t, cfg.AdminEnabled())
}

func TestLoad_ProviderKeys(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL_NAME", "gemini-pro")
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("OPENAI_API_KEY", "o-key")

	cfg, err := Load("")
	require.NoError(t, err)

	ai := cfg.AISettings()
	assert.Equal(t, domain.AIProviderGemini, ai.LLM.Provider)
	assert.Equal(t, "gemini-pro", ai.LLM.Model)
	assert.Equal(t, "g-key", ai.LLM.APIKey)
	assert.Equal(t, domain.AIProviderOpenAI, ai.Embedding.Provider)
	assert.Equal(t, "o-key", ai.Embedding.APIKey)
	assert.True(t, ai.Embedding.IsConfigured())
	assert.True(t, ai.LLM.IsConfigured())
}

func TestLoad_InvalidEnvNumberKeepsDefault(t *testing.T) {
	t.Setenv("SCRAPER_MAX_PAGES", "lots")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Site.MaxPages)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "[server\nport = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown mode", func(c *Config) { c.Server.Mode = "batch" }, domain.ErrInvalidInput},
		{"unknown chain", func(c *Config) { c.LLM.Chain = "refine" }, domain.ErrInvalidInput},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, domain.ErrInvalidInput},
		{"no pages", func(c *Config) { c.Site.MaxPages = 0 }, domain.ErrInvalidInput},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, domain.ErrInvalidInput},
		{"gemini embeddings", func(c *Config) { c.Embedding.Provider = "gemini" }, domain.ErrInvalidProvider},
		{"api mode without shared backend", func(c *Config) { c.Server.Mode = ModeAPI }, domain.ErrInvalidInput},
		{"worker mode without shared backend", func(c *Config) { c.Server.Mode = ModeWorker }, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestValidate_SplitModesWithSharedBackend(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		mutate func(*Config)
	}{
		{"api with redis", ModeAPI, func(c *Config) { c.Backends.RedisURL = "redis://localhost:6379/0" }},
		{"worker with redis", ModeWorker, func(c *Config) { c.Backends.RedisURL = "redis://localhost:6379/0" }},
		{"api with postgres", ModeAPI, func(c *Config) { c.Backends.DatabaseURL = "postgres://localhost/satgraffin" }},
		{"worker with postgres", ModeWorker, func(c *Config) { c.Backends.DatabaseURL = "postgres://localhost/satgraffin" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.Mode = tt.mode
			tt.mutate(cfg)
			assert.True(t, cfg.HasSharedBackend())
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad_RejectsAPIModeWithoutSharedBackend(t *testing.T) {
	t.Setenv("RUN_MODE", ModeAPI)
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load(writeConfig(t, "[site]\nmax_pages = 10\n"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "REDIS_URL or DATABASE_URL")
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json format expected, got %q", out)
	assert.Contains(t, out, `"key":"value"`)
}
