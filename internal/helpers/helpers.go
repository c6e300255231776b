package helpers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
		Roles     []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenValidator checks Supabase access tokens against the project's JWKS.
type TokenValidator struct {
	jwksURL         string
	allowUnverified bool

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

// NewTokenValidator builds a validator for the Supabase project. allowUnverified keeps the
// development fallback of reading claims without a signature check when the JWKS is unreachable.
func NewTokenValidator(supabaseURL string, allowUnverified bool) *TokenValidator {
	return &TokenValidator{
		jwksURL:         fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimRight(supabaseURL, "/")),
		allowUnverified: allowUnverified,
	}
}

func (tv *TokenValidator) keys() (*keyfunc.JWKS, error) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	if tv.jwks != nil {
		return tv.jwks, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jwks, err := keyfunc.Get(tv.jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, err
	}
	tv.jwks = jwks
	return jwks, nil
}

func (tv *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("token is empty")
	}

	jwks, err := tv.keys()
	if err != nil {
		if !tv.allowUnverified {
			return nil, fmt.Errorf("failed to load JWKS: %w", err)
		}
		token, _, parseErr := jwt.NewParser().ParseUnverified(tokenStr, &CustomClaims{})
		if parseErr != nil {
			return nil, fmt.Errorf("JWKS validation failed and fallback parsing failed: %v", parseErr)
		}
		claims, ok := token.Claims.(*CustomClaims)
		if !ok {
			return nil, errors.New("invalid token claims")
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (tv *TokenValidator) Close() {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	if tv.jwks != nil {
		tv.jwks.EndBackground()
		tv.jwks = nil
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
