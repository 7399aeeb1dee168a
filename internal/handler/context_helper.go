package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-approval-api/internal/middleware"
	"github.com/noah-isme/hrms-approval-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext resolves the tenant for the request. The claims tenant
// wins; an X-Tenant-ID header is accepted only for unauthenticated paths.
func tenantFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.TenantID
	}
	return c.GetHeader("X-Tenant-ID")
}
