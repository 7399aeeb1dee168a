package dto

import "github.com/noah-isme/hrms-approval-api/internal/models"

// PolicyLevelInput describes one rung of a policy definition.
type PolicyLevelInput struct {
	LevelOrder   int    `json:"level_order" binding:"required,min=1"`
	ApproverRole string `json:"approver_role" binding:"required"`
}

// CreatePolicyRequest defines a new approval policy with its ordered levels.
type CreatePolicyRequest struct {
	Name      string                `json:"name" binding:"required"`
	Module    models.ApprovalModule `json:"module" binding:"required"`
	IsActive  *bool                 `json:"is_active,omitempty"`
	MinAmount *float64              `json:"min_amount,omitempty"`
	MaxAmount *float64              `json:"max_amount,omitempty"`
	MinDays   *int                  `json:"min_days,omitempty"`
	MaxDays   *int                  `json:"max_days,omitempty"`
	Priority  int                   `json:"priority"`
	Levels    []PolicyLevelInput    `json:"levels" binding:"required,min=1"`
}

// UpdatePolicyRequest mirrors CreatePolicyRequest for full replacement of a
// policy definition. In-flight chains are unaffected because steps copy the
// required role at creation time.
type UpdatePolicyRequest = CreatePolicyRequest

// ResolvePolicyRequest asks which policy would apply for the given inputs.
type ResolvePolicyRequest struct {
	Module models.ApprovalModule `json:"module" binding:"required"`
	Amount *float64              `json:"amount,omitempty"`
	Days   *int                  `json:"days,omitempty"`
}
