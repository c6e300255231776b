package helpers

import "github.com/gin-gonic/gin"

const userContextKey = "user"

type EnhancedClaims struct {
	*CustomClaims
	Role   string `json:"role"`
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
}

func (ec *EnhancedClaims) GetSafeRole() string {
	if ec.Role == "" {
		return "guest"
	}
	return ec.Role
}

func SetUser(c *gin.Context, claims *EnhancedClaims) {
	c.Set(userContextKey, claims)
}

// UserFromContext returns the claims stored by the auth middleware.
func UserFromContext(c *gin.Context) (*EnhancedClaims, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*EnhancedClaims)
	return claims, ok && claims != nil
}
