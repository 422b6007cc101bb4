package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("jwt_test_secret")

func issueToken(t *testing.T, secret []byte, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newAuthRouter(captured *Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", Middleware(testSecret), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		*captured = actor
		c.Status(http.StatusOK)
	})
	return router
}

func TestMiddleware_ResolvesActor(t *testing.T) {
	var actor Actor
	router := newAuthRouter(&actor)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testSecret, userID.String(), "customer"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, actor.UserID)
	assert.False(t, actor.Admin)
}

func TestMiddleware_AdminRole(t *testing.T) {
	var actor Actor
	router := newAuthRouter(&actor)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testSecret, uuid.New().String(), "admin"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, actor.Admin)
}

func TestMiddleware_Rejections(t *testing.T) {
	var actor Actor
	router := newAuthRouter(&actor)

	cases := map[string]string{
		"missing header":   "",
		"not bearer":       "Basic abc123",
		"garbage token":    "Bearer not.a.jwt",
		"wrong secret":     "Bearer " + issueToken(t, []byte("other_secret"), uuid.New().String(), ""),
		"non-uuid subject": "Bearer " + issueToken(t, testSecret, "alice", ""),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddleware_RejectsExpiredToken(t *testing.T) {
	var actor Actor
	router := newAuthRouter(&actor)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
