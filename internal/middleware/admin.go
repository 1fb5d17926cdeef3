package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// DevelopmentAdminKey is accepted in development when no key hash is
// configured.
const DevelopmentAdminKey = "admin-dev-key-change-in-production"

// AdminMiddleware guards preset administration with an API key checked
// against a bcrypt hash.
type AdminMiddleware struct {
	keyHash []byte
}

// NewAdminMiddleware creates the admin guard. An empty hash outside
// development locks every admin endpoint. In development the fallback key is
// hashed at cost; an out-of-range cost falls back to bcrypt.DefaultCost.
func NewAdminMiddleware(keyHash string, environment string, cost int) (*AdminMiddleware, error) {
	if keyHash == "" {
		if environment != "development" {
			return &AdminMiddleware{}, nil
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(DevelopmentAdminKey), cost)
		if err != nil {
			return nil, err
		}
		return &AdminMiddleware{keyHash: hash}, nil
	}
	if _, err := bcrypt.Cost([]byte(keyHash)); err != nil {
		return nil, err
	}
	return &AdminMiddleware{keyHash: []byte(keyHash)}, nil
}

// RequireAdminAuth middleware validates admin API keys
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ""
		// Check for API key in Authorization header (Bearer token)
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && strings.EqualFold(tokenParts[0], "Bearer") {
				key = tokenParts[1]
			}
		}
		// Check for API key in X-API-Key header
		if key == "" {
			key = c.GetHeader("X-API-Key")
		}

		if am.ValidateAdminKey(key) {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Valid admin API key required for this endpoint",
		})
		c.Abort()
	}
}

// ValidateAdminKey validates an admin API key
func (am *AdminMiddleware) ValidateAdminKey(key string) bool {
	if key == "" || len(am.keyHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(am.keyHash, []byte(key)) == nil
}
