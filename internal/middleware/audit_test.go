package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

type auditSinkStub struct {
	logs []*models.AuditLog
}

func (s *auditSinkStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func auditRouter(sink *auditSinkStub, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	r.POST("/admin", Audit(sink, models.AuditActionAdminRequest, "approval_chain"), func(c *gin.Context) {
		c.JSON(status, gin.H{})
	})
	return r
}

func TestAuditRecordsSuccessfulRequest(t *testing.T) {
	sink := &auditSinkStub{}
	router := auditRouter(sink, http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("User-Agent", "test-agent")
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sink.logs, 1)
	entry := sink.logs[0]
	require.Equal(t, models.AuditActionAdminRequest, entry.Action)
	require.Equal(t, "approval_chain", entry.Resource)
	require.NotNil(t, entry.UserID)
	require.Equal(t, "admin-1", *entry.UserID)
	require.Equal(t, "test-agent", entry.UserAgent)
}

func TestAuditSkipsFailedRequest(t *testing.T) {
	sink := &auditSinkStub{}
	router := auditRouter(sink, http.StatusForbidden)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Empty(t, sink.logs)
}
