package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-approval-api/internal/dto"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
	"github.com/noah-isme/hrms-approval-api/pkg/response"
)

type policyService interface {
	FindApplicablePolicy(ctx context.Context, module models.ApprovalModule, thresholds models.PolicyThresholds, tenantID string) (*models.ApprovalPolicy, error)
	Get(ctx context.Context, id string) (*models.ApprovalPolicy, error)
	List(ctx context.Context, tenantID string) ([]models.ApprovalPolicy, error)
	Create(ctx context.Context, req dto.CreatePolicyRequest, actor *models.JWTClaims) (*models.ApprovalPolicy, error)
	Update(ctx context.Context, id string, req dto.UpdatePolicyRequest, actor *models.JWTClaims) (*models.ApprovalPolicy, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// PolicyHandler exposes approval policy administration endpoints.
type PolicyHandler struct {
	service policyService
}

// NewPolicyHandler constructs the handler.
func NewPolicyHandler(service policyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// List godoc
// @Summary List approval policies
// @Tags Policies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /approval-policies [get]
func (h *PolicyHandler) List(c *gin.Context) {
	policies, err := h.service.List(c.Request.Context(), tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policies, nil)
}

// Get godoc
// @Summary Get an approval policy
// @Tags Policies
// @Produce json
// @Param id path string true "Policy ID"
// @Success 200 {object} response.Envelope
// @Router /approval-policies/{id} [get]
func (h *PolicyHandler) Get(c *gin.Context) {
	policy, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Create godoc
// @Summary Create an approval policy
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body dto.CreatePolicyRequest true "Policy definition"
// @Success 201 {object} response.Envelope
// @Router /approval-policies [post]
func (h *PolicyHandler) Create(c *gin.Context) {
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	policy, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, policy)
}

// Update godoc
// @Summary Replace an approval policy definition
// @Tags Policies
// @Accept json
// @Produce json
// @Param id path string true "Policy ID"
// @Param payload body dto.UpdatePolicyRequest true "Policy definition"
// @Success 200 {object} response.Envelope
// @Router /approval-policies/{id} [put]
func (h *PolicyHandler) Update(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	policy, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Delete godoc
// @Summary Delete an approval policy
// @Tags Policies
// @Param id path string true "Policy ID"
// @Success 204
// @Router /approval-policies/{id} [delete]
func (h *PolicyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resolve godoc
// @Summary Preview which policy would apply for the given inputs
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body dto.ResolvePolicyRequest true "Resolution inputs"
// @Success 200 {object} response.Envelope
// @Router /approval-policies/resolve [post]
func (h *PolicyHandler) Resolve(c *gin.Context) {
	var req dto.ResolvePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolve payload"))
		return
	}
	policy, err := h.service.FindApplicablePolicy(c.Request.Context(), req.Module, models.PolicyThresholds{Amount: req.Amount, Days: req.Days}, tenantFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"approval_required": policy != nil, "policy": policy}, nil)
}
