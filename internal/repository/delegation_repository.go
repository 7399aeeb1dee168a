package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

// DelegationRepository persists approver delegations.
type DelegationRepository struct {
	db *sqlx.DB
}

// NewDelegationRepository constructs the repository.
func NewDelegationRepository(db *sqlx.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

// ListActiveGrants returns the currently valid delegations naming the user
// as delegate, joined with each delegator's approval role.
func (r *DelegationRepository) ListActiveGrants(ctx context.Context, tenantID, delegateID string, now time.Time) ([]models.DelegationGrant, error) {
	const query = `SELECT d.id, d.tenant_id, d.delegator_id, d.delegate_id, d.reason,
		d.starts_at, d.ends_at, d.is_active, d.revoked_at, d.created_at,
		u.approval_role AS delegator_role
		FROM approver_delegations d
		JOIN users u ON u.id = d.delegator_id
		WHERE d.tenant_id = $1 AND d.delegate_id = $2
		AND d.is_active = TRUE AND d.revoked_at IS NULL
		AND d.starts_at <= $3 AND d.ends_at >= $3`
	var grants []models.DelegationGrant
	if err := r.db.SelectContext(ctx, &grants, query, tenantID, delegateID, now); err != nil {
		return nil, fmt.Errorf("list active delegation grants: %w", err)
	}
	return grants, nil
}

// Create inserts a new delegation.
func (r *DelegationRepository) Create(ctx context.Context, delegation *models.ApproverDelegation) error {
	if delegation.ID == "" {
		delegation.ID = uuid.NewString()
	}
	if delegation.CreatedAt.IsZero() {
		delegation.CreatedAt = time.Now().UTC()
	}
	delegation.IsActive = true
	const query = `INSERT INTO approver_delegations
		(id, tenant_id, delegator_id, delegate_id, reason, starts_at, ends_at, is_active, revoked_at, created_at)
		VALUES (:id, :tenant_id, :delegator_id, :delegate_id, :reason, :starts_at, :ends_at, :is_active, :revoked_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, delegation); err != nil {
		return fmt.Errorf("create delegation: %w", err)
	}
	return nil
}

// Revoke deactivates a delegation owned by the delegator. A zero-row result
// is reported as sql.ErrNoRows.
func (r *DelegationRepository) Revoke(ctx context.Context, id, delegatorID string, revokedAt time.Time) error {
	const query = `UPDATE approver_delegations
		SET is_active = FALSE, revoked_at = $3
		WHERE id = $1 AND delegator_id = $2 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, delegatorID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke delegation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check revoke rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByDelegator returns the delegations granted by the user, newest first.
func (r *DelegationRepository) ListByDelegator(ctx context.Context, tenantID, delegatorID string) ([]models.ApproverDelegation, error) {
	const query = `SELECT id, tenant_id, delegator_id, delegate_id, reason, starts_at, ends_at, is_active, revoked_at, created_at
		FROM approver_delegations
		WHERE tenant_id = $1 AND delegator_id = $2
		ORDER BY created_at DESC`
	var delegations []models.ApproverDelegation
	if err := r.db.SelectContext(ctx, &delegations, query, tenantID, delegatorID); err != nil {
		return nil, fmt.Errorf("list delegations by delegator: %w", err)
	}
	return delegations, nil
}
