package services

import (
	"context"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
)

// DefaultTokenTTL is how long an admin token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// adminSubject is the subject of every admin token.
const adminSubject = "admin"

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService checks the single admin password and issues stateless tokens.
type authService struct {
	passwordHash string
	authAdapter  driven.AuthAdapter
	tokenTTL     time.Duration
	now          func() time.Time
}

// NewAuthService creates a new AuthService.
// An empty passwordHash disables login.
func NewAuthService(passwordHash string, authAdapter driven.AuthAdapter) driving.AuthService {
	return &authService{
		passwordHash: passwordHash,
		authAdapter:  authAdapter,
		tokenTTL:     DefaultTokenTTL,
		now:          time.Now,
	}
}

// Authenticate validates the admin password and issues a token
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if s.passwordHash == "" {
		return nil, domain.ErrUnauthorized
	}
	if req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if !s.authAdapter.VerifyPassword(req.Password, s.passwordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		Subject:   adminSubject,
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, err
	}

	// Check expiration
	if s.now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	if claims.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}
