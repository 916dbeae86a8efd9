package domain

import "github.com/google/uuid"

// Chunk is a bounded span of page text with provenance.
// Chunks are immutable once created and owned by the vector index after ingestion.
type Chunk struct {
	ID       string `json:"id"`
	Source   string `json:"source"`  // canonical page URL
	Mission  string `json:"mission"` // slug stem of the page
	Slug     string `json:"slug"`
	Position int    `json:"position"`
	Content  string `json:"content"`
}

// NewChunk creates a chunk of page at the given position.
func NewChunk(page *PageRecord, position int, content string) *Chunk {
	return &Chunk{
		ID:       uuid.NewString(),
		Source:   page.URL,
		Mission:  page.Mission(),
		Slug:     page.Slug,
		Position: position,
		Content:  content,
	}
}

// ScoredChunk is a chunk returned from similarity search.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
