package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/middleware"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	"github.com/noah-isme/hrms-approval-api/internal/service"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type approvalServiceStub struct {
	chainExists  bool
	initialized  []models.ApprovalStep
	decision     *models.ApprovalDecision
	decisionErr  error
	bypassCalled bool
	bypassNotes  string
	deleted      bool
}

func (s *approvalServiceStub) InitializeChain(ctx context.Context, module models.ApprovalModule, entityID string, policy *models.ApprovalPolicy, tenantID string) ([]models.ApprovalStep, error) {
	return s.initialized, nil
}

func (s *approvalServiceStub) ProcessApproval(ctx context.Context, stepID, actorID string, action models.ApprovalAction, notes string) (*models.ApprovalDecision, error) {
	if s.decisionErr != nil {
		return nil, s.decisionErr
	}
	return s.decision, nil
}

func (s *approvalServiceStub) AdminBypass(ctx context.Context, module models.ApprovalModule, entityID, adminID, notes, tenantID string) error {
	s.bypassCalled = true
	s.bypassNotes = notes
	return nil
}

func (s *approvalServiceStub) DeleteChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string, actor *models.JWTClaims) error {
	s.deleted = true
	return nil
}

func (s *approvalServiceStub) HasChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	return s.chainExists, nil
}

type queryServiceStub struct {
	exists  bool
	steps   []models.ApprovalStep
	current *models.ApprovalStep
	summary models.ChainSummary
	pending []models.ApprovalStep
}

func (s *queryServiceStub) HasApprovalChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	return s.exists, nil
}

func (s *queryServiceStub) GetChainSteps(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) ([]models.ApprovalStep, error) {
	return s.steps, nil
}

func (s *queryServiceStub) GetCurrentPendingStep(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (*models.ApprovalStep, error) {
	return s.current, nil
}

func (s *queryServiceStub) GetApprovalChainSummary(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (models.ChainSummary, error) {
	return s.summary, nil
}

func (s *queryServiceStub) GetPendingApprovalsForUser(ctx context.Context, userID, tenantID string) ([]models.ApprovalStep, error) {
	return s.pending, nil
}

type policyResolverStub struct {
	policy *models.ApprovalPolicy
}

func (s *policyResolverStub) FindApplicablePolicy(ctx context.Context, module models.ApprovalModule, thresholds models.PolicyThresholds, tenantID string) (*models.ApprovalPolicy, error) {
	return s.policy, nil
}

type authorizerStub struct {
	result models.AuthorizationResult
}

func (s *authorizerStub) CanUserApprove(ctx context.Context, userID string, step *models.ApprovalStep) (models.AuthorizationResult, error) {
	return s.result, nil
}

type exporterStub struct {
	content []byte
}

func (s *exporterStub) ExportChain(ctx context.Context, tenantID string, module models.ApprovalModule, entityID string, format service.ExportFormat) ([]byte, string, string, error) {
	return s.content, "approval-history-leave_request-leave-1.csv", "text/csv", nil
}

type stepFinderStub struct {
	step *models.ApprovalStep
	err  error
}

func (s *stepFinderStub) GetStep(ctx context.Context, stepID string) (*models.ApprovalStep, error) {
	return s.step, s.err
}

type approvalHandlerFixture struct {
	approvals *approvalServiceStub
	queries   *queryServiceStub
	policies  *policyResolverStub
	auth      *authorizerStub
	exporter  *exporterStub
	steps     *stepFinderStub
	router    *gin.Engine
}

func newApprovalFixture(claims *models.JWTClaims) *approvalHandlerFixture {
	gin.SetMode(gin.TestMode)
	f := &approvalHandlerFixture{
		approvals: &approvalServiceStub{},
		queries:   &queryServiceStub{},
		policies:  &policyResolverStub{},
		auth:      &authorizerStub{},
		exporter:  &exporterStub{},
		steps:     &stepFinderStub{},
	}
	h := NewApprovalHandler(f.approvals, f.queries, f.policies, f.auth, f.exporter, f.steps)

	f.router = gin.New()
	if claims != nil {
		f.router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, claims)
			c.Next()
		})
	}
	group := f.router.Group("/api/v1/approvals")
	group.POST("/chains", h.InitializeChain)
	group.GET("/chains/:module/:entityId", h.GetChainSteps)
	group.GET("/chains/:module/:entityId/summary", h.GetChainSummary)
	group.GET("/chains/:module/:entityId/current", h.GetCurrentStep)
	group.GET("/chains/:module/:entityId/exists", h.ChainExists)
	group.GET("/chains/:module/:entityId/export", h.ExportChain)
	group.POST("/chains/:module/:entityId/bypass", h.BypassChain)
	group.DELETE("/chains/:module/:entityId", h.DeleteChain)
	group.POST("/steps/:id/decision", h.DecideStep)
	group.GET("/steps/:id/authorization", h.CheckAuthorization)
	group.GET("/pending", h.PendingApprovals)
	return f
}

func adminTestClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", TenantID: "t1", Role: models.RoleAdmin}
}

func (f *approvalHandlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestInitializeChainConflictWhenChainExists(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.approvals.chainExists = true

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains", gin.H{"module": "LEAVE_REQUEST", "entity_id": "leave-1"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "approval chain already exists")
}

func TestInitializeChainNoPolicyMeansNoApproval(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains", gin.H{"module": "LEAVE_REQUEST", "entity_id": "leave-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			ApprovalRequired bool `json:"approval_required"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Data.ApprovalRequired)
}

func TestInitializeChainCreatesSteps(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.policies.policy = &models.ApprovalPolicy{ID: "pol-1"}
	f.approvals.initialized = []models.ApprovalStep{
		{ID: "step-1", LevelOrder: 1, RequiredRole: "MANAGER", Status: models.StepStatusPending},
		{ID: "step-2", LevelOrder: 2, RequiredRole: "HR", Status: models.StepStatusPending},
	}

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains", gin.H{"module": "LEAVE_REQUEST", "entity_id": "leave-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data struct {
			ApprovalRequired bool                  `json:"approval_required"`
			PolicyID         string                `json:"policy_id"`
			Steps            []models.ApprovalStep `json:"steps"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.ApprovalRequired)
	require.Equal(t, "pol-1", envelope.Data.PolicyID)
	require.Len(t, envelope.Data.Steps, 2)
}

func TestInitializeChainRejectsBadPayload(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains", gin.H{"module": "LEAVE_REQUEST"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetChainStepsRejectsUnknownModule(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodGet, "/api/v1/approvals/chains/EXPENSE/x", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown approval module")
}

func TestGetChainStepsLowercaseModuleAccepted(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.queries.steps = []models.ApprovalStep{{ID: "step-1", RequiredRole: "MANAGER"}}

	w := f.do(t, http.MethodGet, "/api/v1/approvals/chains/leave_request/leave-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "MANAGER")
}

func TestGetCurrentStepNotFoundWhenSettled(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodGet, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1/current", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "no pending step remains")
}

func TestChainExists(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.queries.exists = true

	w := f.do(t, http.MethodGet, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1/exists", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"exists":true`)
}

func TestDecideStepReturnsDecision(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.approvals.decision = &models.ApprovalDecision{
		Step:            &models.ApprovalStep{ID: "step-1", Status: models.StepStatusApproved},
		IsChainComplete: true,
		AllApproved:     true,
	}

	w := f.do(t, http.MethodPost, "/api/v1/approvals/steps/step-1/decision", gin.H{"action": "APPROVE"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"all_approved":true`)
}

func TestDecideStepConflictPropagates(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.approvals.decisionErr = appErrors.Clone(appErrors.ErrConflict, "Step already approved")

	w := f.do(t, http.MethodPost, "/api/v1/approvals/steps/step-1/decision", gin.H{"action": "APPROVE"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "Step already approved")
}

func TestDecideStepRequiresAuthentication(t *testing.T) {
	f := newApprovalFixture(nil)

	w := f.do(t, http.MethodPost, "/api/v1/approvals/steps/step-1/decision", gin.H{"action": "APPROVE"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckAuthorization(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.steps.step = &models.ApprovalStep{ID: "step-1", RequiredRole: "HR"}
	f.auth.result = models.AuthorizationResult{CanApprove: false, Reason: "Requires role HR"}

	w := f.do(t, http.MethodGet, "/api/v1/approvals/steps/step-1/authorization", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Requires role HR")
}

func TestBypassChainWithEmptyBody(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.queries.summary = models.ChainSummary{TotalSteps: 2, CompletedSteps: 2, Status: models.ChainStatusApproved}

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1/bypass", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, f.approvals.bypassCalled)
	require.Empty(t, f.approvals.bypassNotes)
	require.Contains(t, w.Body.String(), `"status":"APPROVED"`)
}

func TestBypassChainForwardsNote(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodPost, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1/bypass", gin.H{"notes": "urgent hire"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "urgent hire", f.approvals.bypassNotes)
}

func TestDeleteChain(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())

	w := f.do(t, http.MethodDelete, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, f.approvals.deleted)
}

func TestPendingApprovals(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.queries.pending = []models.ApprovalStep{{ID: "step-1", RequiredRole: "MANAGER", Status: models.StepStatusPending}}

	w := f.do(t, http.MethodGet, "/api/v1/approvals/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"step-1"`)
}

func TestExportChainSetsAttachmentHeaders(t *testing.T) {
	f := newApprovalFixture(adminTestClaims())
	f.exporter.content = []byte("Level,Required Role\n1,MANAGER\n")

	w := f.do(t, http.MethodGet, "/api/v1/approvals/chains/LEAVE_REQUEST/leave-1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "approval-history-leave_request-leave-1.csv")
	require.Equal(t, "Level,Required Role\n1,MANAGER\n", w.Body.String())
}
