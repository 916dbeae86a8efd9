package driven

import (
	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// AIServiceFactory creates AI services based on configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	// Returns nil, nil if settings are not configured
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateAnswerModel creates an answer model from settings
	// Returns nil, nil if settings are not configured
	CreateAnswerModel(settings *domain.LLMSettings) (AnswerModel, error)
}
