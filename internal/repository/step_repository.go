package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

// StepRepository persists approval steps, the engine's state machine rows.
type StepRepository struct {
	db *sqlx.DB
}

// NewStepRepository constructs the repository.
func NewStepRepository(db *sqlx.DB) *StepRepository {
	return &StepRepository{db: db}
}

const stepColumns = `id, tenant_id, entity_type, entity_id, level_order, required_role, status, approver_id, action_at, notes, created_at`

// DecisionParams groups the mutable columns for a step transition.
type DecisionParams struct {
	StepID     string
	TenantID   string
	EntityType models.ApprovalModule
	EntityID   string
	ApproverID string
	ActionAt   time.Time
	Notes      *string
}

// BulkInsert stores all steps of a new chain in a single batch statement.
func (r *StepRepository) BulkInsert(ctx context.Context, steps []models.ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = uuid.NewString()
		}
		if steps[i].Status == "" {
			steps[i].Status = models.StepStatusPending
		}
		if steps[i].CreatedAt.IsZero() {
			steps[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO approval_steps
		(id, tenant_id, entity_type, entity_id, level_order, required_role, status, approver_id, action_at, notes, created_at)
		VALUES (:id, :tenant_id, :entity_type, :entity_id, :level_order, :required_role, :status, :approver_id, :action_at, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, steps); err != nil {
		return fmt.Errorf("bulk insert steps: %w", err)
	}
	return nil
}

// GetByID fetches a step by identifier.
func (r *StepRepository) GetByID(ctx context.Context, id string) (*models.ApprovalStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM approval_steps WHERE id = $1 LIMIT 1`
	var step models.ApprovalStep
	if err := r.db.GetContext(ctx, &step, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get step by id: %w", err)
	}
	return &step, nil
}

// ListByChain returns every step of a chain ordered ascending by level.
func (r *StepRepository) ListByChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) ([]models.ApprovalStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM approval_steps
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY level_order ASC`
	var steps []models.ApprovalStep
	if err := r.db.SelectContext(ctx, &steps, query, tenantID, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list chain steps: %w", err)
	}
	return steps, nil
}

// HasChain reports whether at least one step exists for the chain.
func (r *StepRepository) HasChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM approval_steps WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tenantID, entityType, entityID); err != nil {
		return false, fmt.Errorf("check chain exists: %w", err)
	}
	return exists, nil
}

// FirstPending returns the PENDING step with the lowest level order, or
// sql.ErrNoRows when none remains.
func (r *StepRepository) FirstPending(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) (*models.ApprovalStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM approval_steps
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND status = 'PENDING'
		ORDER BY level_order ASC LIMIT 1`
	var step models.ApprovalStep
	if err := r.db.GetContext(ctx, &step, query, tenantID, entityType, entityID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("first pending step: %w", err)
	}
	return &step, nil
}

// MarkApproved transitions the step PENDING -> APPROVED through a
// conditional update. A zero-row result means another actor already
// resolved the step and is reported as sql.ErrNoRows.
func (r *StepRepository) MarkApproved(ctx context.Context, params DecisionParams) error {
	const query = `UPDATE approval_steps
		SET status = 'APPROVED', approver_id = $2, action_at = $3, notes = $4
		WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, params.StepID, params.ApproverID, params.ActionAt, params.Notes)
	if err != nil {
		return fmt.Errorf("approve step: %w", err)
	}
	return requireRowsAffected(result)
}

// MarkRejected transitions the step PENDING -> REJECTED and, in the same
// transaction, marks every remaining PENDING step of the chain SKIPPED. The
// conditional update guards against a concurrent decision; sql.ErrNoRows
// signals the race was lost and nothing was changed.
func (r *StepRepository) MarkRejected(ctx context.Context, params DecisionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject step: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const reject = `UPDATE approval_steps
		SET status = 'REJECTED', approver_id = $2, action_at = $3, notes = $4
		WHERE id = $1 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, reject, params.StepID, params.ApproverID, params.ActionAt, params.Notes)
	if err != nil {
		return fmt.Errorf("reject step: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	const skipRest = `UPDATE approval_steps
		SET status = 'SKIPPED', action_at = $4
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND status = 'PENDING'`
	if _, err := tx.ExecContext(ctx, skipRest, params.TenantID, params.EntityType, params.EntityID, params.ActionAt); err != nil {
		return fmt.Errorf("skip remaining steps: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reject step: %w", err)
	}
	return nil
}

// BypassPending approves every remaining PENDING step of the chain in one
// statement. Returns the number of rows touched; zero is a valid no-op.
func (r *StepRepository) BypassPending(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID, adminID string, actionAt time.Time, notes string) (int64, error) {
	const query = `UPDATE approval_steps
		SET status = 'APPROVED', approver_id = $4, action_at = $5, notes = $6
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, tenantID, entityType, entityID, adminID, actionAt, notes)
	if err != nil {
		return 0, fmt.Errorf("bypass pending steps: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check bypass rows: %w", err)
	}
	return rows, nil
}

// ListPending returns every PENDING step for the tenant, lowest levels first.
func (r *StepRepository) ListPending(ctx context.Context, tenantID string) ([]models.ApprovalStep, error) {
	const query = `SELECT ` + stepColumns + ` FROM approval_steps
		WHERE tenant_id = $1 AND status = 'PENDING'
		ORDER BY created_at ASC, level_order ASC`
	var steps []models.ApprovalStep
	if err := r.db.SelectContext(ctx, &steps, query, tenantID); err != nil {
		return nil, fmt.Errorf("list pending steps: %w", err)
	}
	return steps, nil
}

// ListPendingForRoles returns PENDING steps whose required role is one of
// the given roles.
func (r *StepRepository) ListPendingForRoles(ctx context.Context, tenantID string, roles []string) ([]models.ApprovalStep, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roles))
	args := []interface{}{tenantID}
	for i, role := range roles {
		args = append(args, role)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT ` + stepColumns + ` FROM approval_steps
		WHERE tenant_id = $1 AND status = 'PENDING' AND required_role IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY created_at ASC, level_order ASC`
	var steps []models.ApprovalStep
	if err := r.db.SelectContext(ctx, &steps, query, args...); err != nil {
		return nil, fmt.Errorf("list pending steps for roles: %w", err)
	}
	return steps, nil
}

// DeleteChain removes every step of the chain.
func (r *StepRepository) DeleteChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) error {
	const query = `DELETE FROM approval_steps WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3`
	if _, err := r.db.ExecContext(ctx, query, tenantID, entityType, entityID); err != nil {
		return fmt.Errorf("delete chain steps: %w", err)
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
