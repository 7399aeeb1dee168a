package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-approval-api/internal/dto"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	"github.com/noah-isme/hrms-approval-api/internal/service"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
	"github.com/noah-isme/hrms-approval-api/pkg/response"
)

type approvalWriteService interface {
	InitializeChain(ctx context.Context, module models.ApprovalModule, entityID string, policy *models.ApprovalPolicy, tenantID string) ([]models.ApprovalStep, error)
	ProcessApproval(ctx context.Context, stepID, actorID string, action models.ApprovalAction, notes string) (*models.ApprovalDecision, error)
	AdminBypass(ctx context.Context, module models.ApprovalModule, entityID, adminID, notes, tenantID string) error
	DeleteChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string, actor *models.JWTClaims) error
	HasChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error)
}

type approvalQueryService interface {
	HasApprovalChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error)
	GetChainSteps(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) ([]models.ApprovalStep, error)
	GetCurrentPendingStep(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (*models.ApprovalStep, error)
	GetApprovalChainSummary(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (models.ChainSummary, error)
	GetPendingApprovalsForUser(ctx context.Context, userID, tenantID string) ([]models.ApprovalStep, error)
}

type policyResolver interface {
	FindApplicablePolicy(ctx context.Context, module models.ApprovalModule, thresholds models.PolicyThresholds, tenantID string) (*models.ApprovalPolicy, error)
}

type stepAuthorizationChecker interface {
	CanUserApprove(ctx context.Context, userID string, step *models.ApprovalStep) (models.AuthorizationResult, error)
}

type chainExporter interface {
	ExportChain(ctx context.Context, tenantID string, module models.ApprovalModule, entityID string, format service.ExportFormat) ([]byte, string, string, error)
}

type stepFinder interface {
	GetStep(ctx context.Context, stepID string) (*models.ApprovalStep, error)
}

// ApprovalHandler exposes the approval workflow REST endpoints.
type ApprovalHandler struct {
	approvals  approvalWriteService
	queries    approvalQueryService
	policies   policyResolver
	authorizer stepAuthorizationChecker
	exporter   chainExporter
	steps      stepFinder
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(approvals approvalWriteService, queries approvalQueryService, policies policyResolver, authorizer stepAuthorizationChecker, exporter chainExporter, steps stepFinder) *ApprovalHandler {
	return &ApprovalHandler{
		approvals:  approvals,
		queries:    queries,
		policies:   policies,
		authorizer: authorizer,
		exporter:   exporter,
		steps:      steps,
	}
}

// InitializeChain godoc
// @Summary Initialize an approval chain for an entity
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.InitializeChainRequest true "Chain parameters"
// @Success 201 {object} response.Envelope
// @Router /approvals/chains [post]
func (h *ApprovalHandler) InitializeChain(c *gin.Context) {
	var req dto.InitializeChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chain payload"))
		return
	}
	tenantID := tenantFromContext(c)

	exists, err := h.approvals.HasChain(c.Request.Context(), req.Module, req.EntityID, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if exists {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "approval chain already exists for this entity"))
		return
	}

	policy, err := h.policies.FindApplicablePolicy(c.Request.Context(), req.Module, models.PolicyThresholds{Amount: req.Amount, Days: req.Days}, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if policy == nil {
		response.JSON(c, http.StatusOK, dto.InitializeChainResponse{ApprovalRequired: false}, nil)
		return
	}

	steps, err := h.approvals.InitializeChain(c.Request.Context(), req.Module, req.EntityID, policy, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.InitializeChainResponse{
		ApprovalRequired: true,
		PolicyID:         policy.ID,
		Steps:            steps,
	}, nil)
}

// GetChainSteps godoc
// @Summary List the steps of an approval chain
// @Tags Approvals
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/chains/{module}/{entityId} [get]
func (h *ApprovalHandler) GetChainSteps(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	steps, err := h.queries.GetChainSteps(c.Request.Context(), module, entityID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, steps, nil)
}

// GetChainSummary godoc
// @Summary Get the derived status summary of an approval chain
// @Tags Approvals
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/chains/{module}/{entityId}/summary [get]
func (h *ApprovalHandler) GetChainSummary(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	summary, err := h.queries.GetApprovalChainSummary(c.Request.Context(), module, entityID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetCurrentStep godoc
// @Summary Get the lowest pending step of an approval chain
// @Tags Approvals
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/chains/{module}/{entityId}/current [get]
func (h *ApprovalHandler) GetCurrentStep(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	step, err := h.queries.GetCurrentPendingStep(c.Request.Context(), module, entityID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if step == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no pending step remains"))
		return
	}
	response.JSON(c, http.StatusOK, step, nil)
}

// ChainExists godoc
// @Summary Check whether an approval chain exists for an entity
// @Tags Approvals
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/chains/{module}/{entityId}/exists [get]
func (h *ApprovalHandler) ChainExists(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	exists, err := h.queries.HasApprovalChain(c.Request.Context(), module, entityID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"exists": exists}, nil)
}

// DeleteChain godoc
// @Summary Delete all steps of an approval chain
// @Tags Approvals
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Success 204
// @Router /approvals/chains/{module}/{entityId} [delete]
func (h *ApprovalHandler) DeleteChain(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	if err := h.approvals.DeleteChain(c.Request.Context(), module, entityID, tenantFromContext(c), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DecideStep godoc
// @Summary Approve or reject a single approval step
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Step ID"
// @Param payload body dto.DecideStepRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /approvals/steps/{id}/decision [post]
func (h *ApprovalHandler) DecideStep(c *gin.Context) {
	stepID := c.Param("id")
	var req dto.DecideStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	decision, err := h.approvals.ProcessApproval(c.Request.Context(), stepID, claims.UserID, req.Action, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// CheckAuthorization godoc
// @Summary Check whether the caller may act on a step
// @Tags Approvals
// @Produce json
// @Param id path string true "Step ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/steps/{id}/authorization [get]
func (h *ApprovalHandler) CheckAuthorization(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := h.steps.GetStep(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.authorizer.CanUserApprove(c.Request.Context(), claims.UserID, step)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BypassChain godoc
// @Summary Approve all remaining pending steps of a chain
// @Tags Approvals
// @Accept json
// @Produce json
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Param payload body dto.BypassChainRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /approvals/chains/{module}/{entityId}/bypass [post]
func (h *ApprovalHandler) BypassChain(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	var req dto.BypassChainRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bypass payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.approvals.AdminBypass(c.Request.Context(), module, entityID, claims.UserID, req.Notes, tenantFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.queries.GetApprovalChainSummary(c.Request.Context(), module, entityID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// PendingApprovals godoc
// @Summary List the pending steps the caller can act on
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /approvals/pending [get]
func (h *ApprovalHandler) PendingApprovals(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	steps, err := h.queries.GetPendingApprovalsForUser(c.Request.Context(), claims.UserID, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, steps, nil)
}

// ExportChain godoc
// @Summary Export an approval chain history as CSV or PDF
// @Tags Approvals
// @Produce text/csv
// @Produce application/pdf
// @Param module path string true "Approval module"
// @Param entityId path string true "Entity ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /approvals/chains/{module}/{entityId}/export [get]
func (h *ApprovalHandler) ExportChain(c *gin.Context) {
	module, entityID, ok := chainParams(c)
	if !ok {
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	content, filename, contentType, err := h.exporter.ExportChain(c.Request.Context(), tenantFromContext(c), module, entityID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, content)
}

// chainParams extracts and validates the module and entity path params.
func chainParams(c *gin.Context) (models.ApprovalModule, string, bool) {
	module := models.ApprovalModule(strings.ToUpper(c.Param("module")))
	entityID := c.Param("entityId")
	if !module.IsValid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown approval module"))
		return "", "", false
	}
	if entityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "entity id is required"))
		return "", "", false
	}
	return module, entityID, true
}
