package models

import "time"

// ApprovalModule enumerates the approvable entity categories.
type ApprovalModule string

const (
	ModuleLeaveRequest    ApprovalModule = "LEAVE_REQUEST"
	ModulePurchaseRequest ApprovalModule = "PURCHASE_REQUEST"
	ModuleAssetRequest    ApprovalModule = "ASSET_REQUEST"
)

// KnownModules lists the recognised approval modules.
var KnownModules = []ApprovalModule{
	ModuleLeaveRequest,
	ModulePurchaseRequest,
	ModuleAssetRequest,
}

// IsValid reports whether the module is a recognised category.
func (m ApprovalModule) IsValid() bool {
	for _, known := range KnownModules {
		if m == known {
			return true
		}
	}
	return false
}

// ApprovalLevel is one rung of a policy: a 1-based position in the order
// plus the organizational role required there.
type ApprovalLevel struct {
	ID           string `db:"id" json:"id"`
	PolicyID     string `db:"policy_id" json:"policy_id"`
	LevelOrder   int    `db:"level_order" json:"level_order"`
	ApproverRole string `db:"approver_role" json:"approver_role"`
}

// ApprovalPolicy maps an entity category and optional numeric thresholds to
// an ordered list of required approval levels. Policies are created by
// administrators and are read-only to chain processing.
type ApprovalPolicy struct {
	ID        string          `db:"id" json:"id"`
	TenantID  string          `db:"tenant_id" json:"tenant_id"`
	Name      string          `db:"name" json:"name"`
	Module    ApprovalModule  `db:"module" json:"module"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	MinAmount *float64        `db:"min_amount" json:"min_amount,omitempty"`
	MaxAmount *float64        `db:"max_amount" json:"max_amount,omitempty"`
	MinDays   *int            `db:"min_days" json:"min_days,omitempty"`
	MaxDays   *int            `db:"max_days" json:"max_days,omitempty"`
	Priority  int             `db:"priority" json:"priority"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
	Levels    []ApprovalLevel `db:"-" json:"levels"`
}

// PolicyThresholds carries the caller-supplied numeric inputs used only for
// policy matching. Nil means the caller did not supply the value.
type PolicyThresholds struct {
	Amount *float64
	Days   *int
}

// Matches reports whether the policy's threshold ranges accept the supplied
// values. An absent bound on either side is unbounded; a policy with no
// bounds at all matches unconditionally. A bound with no supplied value does
// not match.
func (p *ApprovalPolicy) Matches(thresholds PolicyThresholds) bool {
	if !inRangeFloat(thresholds.Amount, p.MinAmount, p.MaxAmount) {
		return false
	}
	return inRangeInt(thresholds.Days, p.MinDays, p.MaxDays)
}

func inRangeFloat(value, min, max *float64) bool {
	if min == nil && max == nil {
		return true
	}
	if value == nil {
		return false
	}
	if min != nil && *value < *min {
		return false
	}
	if max != nil && *value > *max {
		return false
	}
	return true
}

func inRangeInt(value, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	if value == nil {
		return false
	}
	if min != nil && *value < *min {
		return false
	}
	if max != nil && *value > *max {
		return false
	}
	return true
}
