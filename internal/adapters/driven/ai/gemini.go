package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

var _ driven.AnswerModel = (*GeminiAnswerModel)(nil)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAnswerModel generates answers with the Gemini API.
type GeminiAnswerModel struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiAnswerModel creates a Gemini answer model. endpoint overrides the
// API base URL and is only needed for proxies and tests.
func NewGeminiAnswerModel(ctx context.Context, apiKey, model, endpoint string, temperature float64) (*GeminiAnswerModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint != "" {
		cfg.HTTPOptions.BaseURL = strings.TrimRight(endpoint, "/") + "/"
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiAnswerModel{
		client:      client,
		model:       strings.TrimPrefix(model, "models/"),
		temperature: float32(temperature),
	}, nil
}

// Generate returns the text of the first candidate.
func (m *GeminiAnswerModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(m.temperature),
	})
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

// Model returns the model name being used
func (m *GeminiAnswerModel) Model() string { return m.model }

// Ping fetches the model's metadata.
func (m *GeminiAnswerModel) Ping(ctx context.Context) error {
	if _, err := m.client.Models.Get(ctx, m.model, nil); err != nil {
		return classifyGeminiError(err)
	}
	return nil
}

// Close is a no-op.
func (m *GeminiAnswerModel) Close() error { return nil }

// classifyGeminiError maps credential failures onto domain.ErrUnauthorized.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("gemini: %w", err)
		}
		apiErr = *ptr
	}

	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("gemini: %w: %s", domain.ErrUnauthorized, apiErr.Message)
	case http.StatusBadRequest:
		if strings.Contains(apiErr.Message, "API key") {
			return fmt.Errorf("gemini: %w: %s", domain.ErrUnauthorized, apiErr.Message)
		}
	}
	return fmt.Errorf("gemini: status %d: %s", apiErr.Code, apiErr.Message)
}
