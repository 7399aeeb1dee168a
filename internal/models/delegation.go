package models

import "time"

// ApproverDelegation is a temporary grant letting the delegate act on any
// step requiring the delegator's approval role. Lifecycle is owned by the
// delegation endpoints; the engine only reads active grants at
// authorization time.
type ApproverDelegation struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	DelegatorID string     `db:"delegator_id" json:"delegator_id"`
	DelegateID  string     `db:"delegate_id" json:"delegate_id"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time  `db:"ends_at" json:"ends_at"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	RevokedAt   *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// DelegationGrant is a delegation joined with the delegator's approval role,
// which is what the authorizer actually matches against.
type DelegationGrant struct {
	ApproverDelegation
	DelegatorRole string `db:"delegator_role" json:"delegator_role"`
}
