package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

var _ driven.AnswerModel = (*OpenAIAnswerModel)(nil)

const defaultOpenAIChatModel = "gpt-4o-mini"

// OpenAIAnswerModel generates answers with the chat completions API.
type OpenAIAnswerModel struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
}

// NewOpenAIAnswerModel creates an answer model for OpenAI or a compatible server.
func NewOpenAIAnswerModel(apiKey, model, baseURL string, temperature float64) (*OpenAIAnswerModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIChatModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIAnswerModel{
		apiKey:      apiKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns the first choice's content.
func (m *OpenAIAnswerModel) Generate(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	err := postJSON(ctx, m.client, m.baseURL+"/chat/completions", m.apiKey, chatRequest{
		Model:       m.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: m.temperature,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the model name being used
func (m *OpenAIAnswerModel) Model() string { return m.model }

// Ping lists models, which needs a valid key but costs nothing.
func (m *OpenAIAnswerModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai ping: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections
func (m *OpenAIAnswerModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
