// Package ai adapts hosted and self-hosted model providers to the
// embedding and answer model ports.
package ai

import (
	"context"
	"fmt"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOllama:
		return NewOllamaEmbedding(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: no embedding adapter for %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateAnswerModel creates an answer model from settings
func (f *Factory) CreateAnswerModel(settings *domain.LLMSettings) (driven.AnswerModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return NewGeminiAnswerModel(context.Background(), settings.APIKey, settings.Model, settings.BaseURL, settings.Temperature)
	case domain.AIProviderOpenAI:
		return NewOpenAIAnswerModel(settings.APIKey, settings.Model, settings.BaseURL, settings.Temperature)
	case domain.AIProviderOllama:
		return NewOllamaAnswerModel(settings.BaseURL, settings.Model, settings.Temperature)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
