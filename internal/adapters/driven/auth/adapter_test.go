package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

func testAdapter() *Adapter {
	return NewAdapterWithCost("test-secret", bcrypt.MinCost)
}

func adminClaims(expiresIn time.Duration) *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		Subject:   "admin",
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(expiresIn).Unix(),
	}
}

func TestNewAdapter_DefaultCost(t *testing.T) {
	a := NewAdapter("secret")
	assert.Equal(t, bcrypt.DefaultCost, a.bcryptCost)
	assert.Equal(t, []byte("secret"), a.jwtSecret)
}

func TestPasswords(t *testing.T) {
	a := testAdapter()

	hash, err := a.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	other, err := a.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salted")

	assert.True(t, a.VerifyPassword("correct horse", hash))
	assert.False(t, a.VerifyPassword("wrong", hash))
	assert.False(t, a.VerifyPassword("correct horse", "not-a-hash"))
}

func TestToken_RoundTrip(t *testing.T) {
	a := testAdapter()
	in := adminClaims(time.Hour)

	token, err := a.GenerateToken(in)
	require.NoError(t, err)

	out, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseToken_Expired(t *testing.T) {
	a := testAdapter()
	token, err := a.GenerateToken(adminClaims(-time.Minute))
	require.NoError(t, err)

	_, err = a.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewAdapterWithCost("other", bcrypt.MinCost).GenerateToken(adminClaims(time.Hour))
	require.NoError(t, err)

	_, err = testAdapter().ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_Malformed(t *testing.T) {
	for _, token := range []string{"", "not.a.token", "abc"} {
		_, err := testAdapter().ParseToken(token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, token)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwtClaims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = testAdapter().ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_RequiresIssuerAndExpiry(t *testing.T) {
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = testAdapter().ParseToken(noExp)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = testAdapter().ParseToken(foreign)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func BenchmarkParseToken(b *testing.B) {
	a := testAdapter()
	token, _ := a.GenerateToken(adminClaims(time.Hour))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.ParseToken(token)
	}
}
