package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
			c.Next()
		})
	}
	r.GET("/guarded", guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func getGuarded(router *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, RequireAdmin())
	require.Equal(t, http.StatusOK, getGuarded(router).Code)
}

func TestRequireAdminAllowsSuperAdmin(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}, RequireAdmin())
	require.Equal(t, http.StatusOK, getGuarded(router).Code)
}

func TestRequireAdminRejectsEmployee(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}, RequireAdmin())
	require.Equal(t, http.StatusForbidden, getGuarded(router).Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router := rbacRouter(nil, RequireRoles(models.RoleAdmin))
	require.Equal(t, http.StatusUnauthorized, getGuarded(router).Code)
}

func TestCurrentUserTypeMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextUserKey, "not-claims")

	_, ok := CurrentUser(c)
	require.False(t, ok)
}
