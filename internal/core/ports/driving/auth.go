package driving

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// AuthService handles admin authentication
type AuthService interface {
	// Authenticate checks the admin password and issues a token
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
