package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
		{"ErrInvalidCredentials", ErrInvalidCredentials, "invalid credentials"},
		{"ErrNotReady", ErrNotReady, "retrieval not ready"},
		{"ErrModelMismatch", ErrModelMismatch, "embedding model mismatch"},
		{"ErrNoContent", ErrNoContent, "no indexable content"},
		{"ErrAlreadyQueued", ErrAlreadyQueued, "refresh already queued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
		ErrInvalidProvider,
		ErrServiceUnavailable,
		ErrNotReady,
		ErrModelMismatch,
		ErrNoContent,
		ErrAlreadyQueued,
		ErrQueueClosed,
	}

	for i, a := range allErrors {
		for j, b := range allErrors {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors %d and %d should be distinct", i, j)
			}
		}
	}
}

func TestErrorsWrap(t *testing.T) {
	wrapped := fmt.Errorf("load vector store: %w", ErrModelMismatch)
	if !errors.Is(wrapped, ErrModelMismatch) {
		t.Error("expected wrapped error to match sentinel")
	}
}
