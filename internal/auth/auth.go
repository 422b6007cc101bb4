// Package auth provides the bearer-token middleware that resolves the
// acting user for order operations. Token issuance lives elsewhere.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actor identifies the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

const actorContextKey = "auth.actor"

// claims is the accepted token shape: subject is the user id, role "admin"
// grants administrative cancel/process rights.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates the Authorization bearer token (HS256, shared
// secret) and stores the Actor on the request context.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		var cl claims
		token, err := jwt.ParseWithClaims(tokenStr, &cl, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(cl.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid subject"})
			return
		}

		c.Set(actorContextKey, Actor{UserID: userID, Admin: cl.Role == "admin"})
		c.Next()
	}
}

// ActorFrom extracts the authenticated actor from the gin context.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
