package mocks

import (
	"context"
	"errors"
	"sync"
)

// ErrMockModel is returned by MockAnswerModel when Fail is set.
var ErrMockModel = errors.New("mock model failure")

// MockAnswerModel records prompts and returns a canned answer.
type MockAnswerModel struct {
	mu      sync.Mutex
	prompts []string

	// Answer is returned from Generate.
	Answer string

	// Fail makes every Generate call return ErrMockModel.
	Fail bool

	// GenerateFn overrides Generate when set.
	GenerateFn func(prompt string) (string, error)
}

// NewMockAnswerModel creates a model that always answers with answer.
func NewMockAnswerModel(answer string) *MockAnswerModel {
	return &MockAnswerModel{Answer: answer}
}

func (m *MockAnswerModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn, fail, answer := m.GenerateFn, m.Fail, m.Answer
	m.mu.Unlock()

	if fn != nil {
		return fn(prompt)
	}
	if fail {
		return "", ErrMockModel
	}
	return answer, nil
}

func (m *MockAnswerModel) Model() string {
	return "mock-answer-model"
}

func (m *MockAnswerModel) Ping(ctx context.Context) error {
	return nil
}

func (m *MockAnswerModel) Close() error {
	return nil
}

// Prompts returns a copy of every prompt received.
func (m *MockAnswerModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
