package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*OllamaEmbedding)(nil)
	_ driven.AnswerModel      = (*OllamaAnswerModel)(nil)
)

const defaultOllamaHost = "http://localhost:11434"

func newOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		baseURL = defaultOllamaHost
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

// OllamaEmbedding embeds text with a locally served model such as all-minilm.
type OllamaEmbedding struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaEmbedding creates an embedder connected to Ollama.
func NewOllamaEmbedding(baseURL, model string) (*OllamaEmbedding, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedding{client: client, model: model}, nil
}

// Embed sends all texts in one request; Ollama returns them in input order.
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	if e.dimensions == 0 && len(resp.Embeddings[0]) > 0 {
		e.dimensions = len(resp.Embeddings[0])
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single query.
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions is learned from the first response.
func (e *OllamaEmbedding) Dimensions() int { return e.dimensions }

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string { return e.model }

// HealthCheck checks that the Ollama server answers.
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	if _, err := e.client.Version(ctx); err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	return nil
}

// Close is a no-op.
func (e *OllamaEmbedding) Close() error { return nil }

// OllamaAnswerModel generates answers with a local chat model.
type OllamaAnswerModel struct {
	client      *api.Client
	model       string
	temperature float64
}

// NewOllamaAnswerModel creates an answer model served by Ollama.
func NewOllamaAnswerModel(baseURL, model string, temperature float64) (*OllamaAnswerModel, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama chat model is required")
	}
	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaAnswerModel{client: client, model: model, temperature: temperature}, nil
}

// Generate sends prompt as a single user message and waits for the full reply.
func (m *OllamaAnswerModel) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder
	err := m.client.Chat(ctx, &api.ChatRequest{
		Model:    m.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options:  map[string]any{"temperature": m.temperature},
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return sb.String(), nil
}

// Model returns the model name being used
func (m *OllamaAnswerModel) Model() string { return m.model }

// Ping checks that the Ollama server answers.
func (m *OllamaAnswerModel) Ping(ctx context.Context) error {
	_, err := m.client.Version(ctx)
	return err
}

// Close is a no-op.
func (m *OllamaAnswerModel) Close() error { return nil }
