package models

import "time"

// StepStatus captures the persisted state machine of a single step. Every
// transition out of PENDING is terminal.
type StepStatus string

const (
	StepStatusPending  StepStatus = "PENDING"
	StepStatusApproved StepStatus = "APPROVED"
	StepStatusRejected StepStatus = "REJECTED"
	StepStatusSkipped  StepStatus = "SKIPPED"
)

// ApprovalAction enumerates the decisions an actor can apply to a step.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "APPROVE"
	ActionReject  ApprovalAction = "REJECT"
)

// ChainStatus is the derived aggregate status of an approval chain. It is
// never stored.
type ChainStatus string

const (
	ChainStatusNotStarted ChainStatus = "NOT_STARTED"
	ChainStatusPending    ChainStatus = "PENDING"
	ChainStatusApproved   ChainStatus = "APPROVED"
	ChainStatusRejected   ChainStatus = "REJECTED"
)

// ApprovalStep is the persisted state of one policy level for one specific
// entity instance. The required role is copied from the policy level at
// creation time so later policy edits never alter in-flight chains.
type ApprovalStep struct {
	ID           string         `db:"id" json:"id"`
	TenantID     string         `db:"tenant_id" json:"tenant_id"`
	EntityType   ApprovalModule `db:"entity_type" json:"entity_type"`
	EntityID     string         `db:"entity_id" json:"entity_id"`
	LevelOrder   int            `db:"level_order" json:"level_order"`
	RequiredRole string         `db:"required_role" json:"required_role"`
	Status       StepStatus     `db:"status" json:"status"`
	ApproverID   *string        `db:"approver_id" json:"approver_id,omitempty"`
	ActionAt     *time.Time     `db:"action_at" json:"action_at,omitempty"`
	Notes        *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// ChainSummary is the compact status view of a chain. CompletedSteps counts
// APPROVED steps; CurrentStep is the level order of the first step that is
// neither APPROVED nor SKIPPED, nil when none remains.
type ChainSummary struct {
	TotalSteps     int         `json:"total_steps"`
	CompletedSteps int         `json:"completed_steps"`
	CurrentStep    *int        `json:"current_step,omitempty"`
	Status         ChainStatus `json:"status"`
}

// DeriveChainSummary computes the aggregate summary from a chain's steps.
func DeriveChainSummary(steps []ApprovalStep) ChainSummary {
	summary := ChainSummary{TotalSteps: len(steps), Status: ChainStatusNotStarted}
	if len(steps) == 0 {
		return summary
	}

	rejected := false
	pending := false
	for _, step := range steps {
		switch step.Status {
		case StepStatusApproved:
			summary.CompletedSteps++
		case StepStatusRejected:
			rejected = true
		case StepStatusPending:
			pending = true
		}
		if summary.CurrentStep == nil && step.Status != StepStatusApproved && step.Status != StepStatusSkipped {
			order := step.LevelOrder
			summary.CurrentStep = &order
		}
	}

	switch {
	case rejected:
		summary.Status = ChainStatusRejected
	case pending:
		summary.Status = ChainStatusPending
	default:
		summary.Status = ChainStatusApproved
	}
	return summary
}

// ApprovalDecision reports the outcome of processing a single step.
type ApprovalDecision struct {
	Step            *ApprovalStep `json:"step"`
	IsChainComplete bool          `json:"is_chain_complete"`
	AllApproved     bool          `json:"all_approved"`
}

// AuthorizationResult is the advisory outcome of an authorization check.
type AuthorizationResult struct {
	CanApprove    bool   `json:"can_approve"`
	Reason        string `json:"reason,omitempty"`
	ViaDelegation bool   `json:"via_delegation,omitempty"`
}
