package dto

import "github.com/noah-isme/hrms-approval-api/internal/models"

// InitializeChainRequest asks the engine to resolve a policy and create an
// approval chain for the given entity. Amount and days are optional policy
// matching inputs supplied by the owning module.
type InitializeChainRequest struct {
	Module   models.ApprovalModule `json:"module" binding:"required"`
	EntityID string                `json:"entity_id" binding:"required"`
	Amount   *float64              `json:"amount,omitempty"`
	Days     *int                  `json:"days,omitempty"`
}

// InitializeChainResponse returns the created steps, or signals that no
// active policy matched and no approval is required.
type InitializeChainResponse struct {
	ApprovalRequired bool                  `json:"approval_required"`
	PolicyID         string                `json:"policy_id,omitempty"`
	Steps            []models.ApprovalStep `json:"steps,omitempty"`
}

// DecideStepRequest applies an approve/reject action to a single step.
type DecideStepRequest struct {
	Action models.ApprovalAction `json:"action" binding:"required"`
	Notes  string                `json:"notes,omitempty"`
}

// BypassChainRequest carries the optional note for an administrative bypass.
type BypassChainRequest struct {
	Notes string `json:"notes,omitempty"`
}
