package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc.def", BearerToken("Bearer abc.def"))
	assert.Equal(t, "abc.def", BearerToken("bearer abc.def"))
	assert.Empty(t, BearerToken("Basic dXNlcjpwYXNz"))
	assert.Empty(t, BearerToken("Bearer "))
}

func TestValidateToken_UnverifiedFallback(t *testing.T) {
	claims := CustomClaims{
		Email: "organizer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f1c1a8e-5a8e-4c55-9a5e-0c1f3a9d2b11",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	// nothing listens on this port, so the JWKS fetch fails
	tv := NewTokenValidator("http://127.0.0.1:1", true)
	got, err := tv.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, got.Subject)
	assert.Equal(t, "organizer@example.com", got.Email)

	strict := NewTokenValidator("http://127.0.0.1:1", false)
	_, err = strict.ValidateToken(signed)
	assert.Error(t, err)

	_, err = tv.ValidateToken("")
	assert.Error(t, err)
}

func TestResponses(t *testing.T) {
	r := StaleResponse("sold out")
	assert.False(t, r.Success)
	assert.True(t, r.Refresh)

	p := PaginatedResponse([]int{1}, 2, 10, 11)
	assert.True(t, p.Success)
	assert.Equal(t, 11, p.Total)
}
