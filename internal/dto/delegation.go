package dto

import "time"

// CreateDelegationRequest grants the delegate the delegator's approval role
// for the given window.
type CreateDelegationRequest struct {
	DelegateID string    `json:"delegate_id" binding:"required"`
	Reason     string    `json:"reason,omitempty"`
	StartsAt   time.Time `json:"starts_at" binding:"required"`
	EndsAt     time.Time `json:"ends_at" binding:"required"`
}
