package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	"github.com/noah-isme/hrms-approval-api/internal/service"
)

const jwtTestSecret = "jwt-middleware-secret"

func jwtTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	authService := service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: jwtTestSecret,
		AccessTokenExpiry: time.Minute,
	})
	r := gin.New()
	r.GET("/protected", JWT(authService), func(c *gin.Context) {
		claims, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func signTestToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleEmployee,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsValidBearerToken(t *testing.T) {
	router := jwtTestRouter()
	token := signTestToken(t, jwtTestSecret, time.Minute)

	w := protectedRequest(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user-1"`)
}

func TestJWTMissingHeader(t *testing.T) {
	w := protectedRequest(jwtTestRouter(), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	w := protectedRequest(jwtTestRouter(), "Token abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTExpiredToken(t *testing.T) {
	router := jwtTestRouter()
	token := signTestToken(t, jwtTestSecret, -time.Minute)

	w := protectedRequest(router, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTWrongSecret(t *testing.T) {
	router := jwtTestRouter()
	token := signTestToken(t, "other-secret", time.Minute)

	w := protectedRequest(router, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
