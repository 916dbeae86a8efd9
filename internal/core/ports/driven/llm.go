package driven

import "context"

// AnswerModel is a generative model used to synthesise answers.
// Callers must treat it as unreliable: any call may fail or time out.
type AnswerModel interface {
	// Generate returns the model's completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping checks if the model provider is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
