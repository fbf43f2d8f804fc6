package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow/gymflow-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *models.JWTClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func memberClaims(role string) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: 1,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newProtectedRouter(secret string, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(secret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAllowsValidToken(t *testing.T) {
	r := newProtectedRouter(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, memberClaims("MEMBER"), testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r := newProtectedRouter(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	r := newProtectedRouter(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, memberClaims("MEMBER"), "other-secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	r := newProtectedRouter(testSecret)

	claims := memberClaims("MEMBER")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACAllowsListedRole(t *testing.T) {
	r := newProtectedRouter(testSecret, RBAC("ADMIN", "MANAGER"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, memberClaims("MANAGER"), testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	r := newProtectedRouter(testSecret, RBAC("ADMIN"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, memberClaims("MEMBER"), testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
