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

type delegationService interface {
	Create(ctx context.Context, req dto.CreateDelegationRequest, actor *models.JWTClaims) (*models.ApproverDelegation, error)
	Revoke(ctx context.Context, id string, actor *models.JWTClaims) error
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ApproverDelegation, error)
}

// DelegationHandler exposes approver delegation endpoints.
type DelegationHandler struct {
	service delegationService
}

// NewDelegationHandler constructs the handler.
func NewDelegationHandler(service delegationService) *DelegationHandler {
	return &DelegationHandler{service: service}
}

// Create godoc
// @Summary Delegate the caller's approval role to another user
// @Tags Delegations
// @Accept json
// @Produce json
// @Param payload body dto.CreateDelegationRequest true "Delegation window"
// @Success 201 {object} response.Envelope
// @Router /delegations [post]
func (h *DelegationHandler) Create(c *gin.Context) {
	var req dto.CreateDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid delegation payload"))
		return
	}
	delegation, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, delegation)
}

// Revoke godoc
// @Summary Revoke a delegation granted by the caller
// @Tags Delegations
// @Param id path string true "Delegation ID"
// @Success 204
// @Router /delegations/{id} [delete]
func (h *DelegationHandler) Revoke(c *gin.Context) {
	if err := h.service.Revoke(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List delegations granted by the caller
// @Tags Delegations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /delegations [get]
func (h *DelegationHandler) List(c *gin.Context) {
	delegations, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, delegations, nil)
}
