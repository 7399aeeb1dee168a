package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

// PolicyRepository persists approval policies and their levels.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

const policyColumns = `id, tenant_id, name, module, is_active, min_amount, max_amount, min_days, max_days, priority, created_at, updated_at`

// ListActiveByModule returns the active policies for a module ordered by
// priority descending, ties broken by earliest creation. Levels are attached
// ordered ascending by level_order.
func (r *PolicyRepository) ListActiveByModule(ctx context.Context, module models.ApprovalModule, tenantID string) ([]models.ApprovalPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM approval_policies WHERE module = $1 AND is_active = TRUE`
	args := []interface{}{module}
	if tenantID != "" {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	var policies []models.ApprovalPolicy
	if err := r.db.SelectContext(ctx, &policies, query, args...); err != nil {
		return nil, fmt.Errorf("list active policies: %w", err)
	}
	if err := r.attachLevels(ctx, policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// GetByID fetches a policy with its levels.
func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*models.ApprovalPolicy, error) {
	const query = `SELECT ` + policyColumns + ` FROM approval_policies WHERE id = $1 LIMIT 1`
	var policy models.ApprovalPolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get policy by id: %w", err)
	}
	levels, err := r.loadLevels(ctx, []string{policy.ID})
	if err != nil {
		return nil, err
	}
	policy.Levels = levels[policy.ID]
	return &policy, nil
}

// List returns all policies for a tenant, newest first, with levels attached.
func (r *PolicyRepository) List(ctx context.Context, tenantID string) ([]models.ApprovalPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM approval_policies`
	var args []interface{}
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	var policies []models.ApprovalPolicy
	if err := r.db.SelectContext(ctx, &policies, query, args...); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	if err := r.attachLevels(ctx, policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// Create inserts a policy and its levels in one transaction.
func (r *PolicyRepository) Create(ctx context.Context, policy *models.ApprovalPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create policy: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertPolicy = `INSERT INTO approval_policies
		(id, tenant_id, name, module, is_active, min_amount, max_amount, min_days, max_days, priority, created_at, updated_at)
		VALUES (:id, :tenant_id, :name, :module, :is_active, :min_amount, :max_amount, :min_days, :max_days, :priority, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertPolicy, policy); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}

	if err := r.insertLevels(ctx, tx, policy); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create policy: %w", err)
	}
	return nil
}

// Update replaces the policy row and its full level list.
func (r *PolicyRepository) Update(ctx context.Context, policy *models.ApprovalPolicy) error {
	policy.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update policy: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updatePolicy = `UPDATE approval_policies SET
		name = :name, module = :module, is_active = :is_active,
		min_amount = :min_amount, max_amount = :max_amount,
		min_days = :min_days, max_days = :max_days,
		priority = :priority, updated_at = :updated_at
		WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, updatePolicy, policy)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check policy update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM approval_levels WHERE policy_id = $1`, policy.ID); err != nil {
		return fmt.Errorf("clear policy levels: %w", err)
	}
	if err := r.insertLevels(ctx, tx, policy); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update policy: %w", err)
	}
	return nil
}

// Delete removes the policy and its levels.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete policy: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM approval_levels WHERE policy_id = $1`, id); err != nil {
		return fmt.Errorf("delete policy levels: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM approval_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check policy delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) insertLevels(ctx context.Context, tx *sqlx.Tx, policy *models.ApprovalPolicy) error {
	for i := range policy.Levels {
		level := &policy.Levels[i]
		if level.ID == "" {
			level.ID = uuid.NewString()
		}
		level.PolicyID = policy.ID
	}
	if len(policy.Levels) == 0 {
		return nil
	}
	const insertLevel = `INSERT INTO approval_levels (id, policy_id, level_order, approver_role)
		VALUES (:id, :policy_id, :level_order, :approver_role)`
	if _, err := tx.NamedExecContext(ctx, insertLevel, policy.Levels); err != nil {
		return fmt.Errorf("create policy levels: %w", err)
	}
	return nil
}

func (r *PolicyRepository) attachLevels(ctx context.Context, policies []models.ApprovalPolicy) error {
	if len(policies) == 0 {
		return nil
	}
	ids := make([]string, len(policies))
	for i, policy := range policies {
		ids[i] = policy.ID
	}
	levels, err := r.loadLevels(ctx, ids)
	if err != nil {
		return err
	}
	for i := range policies {
		policies[i].Levels = levels[policies[i].ID]
	}
	return nil
}

func (r *PolicyRepository) loadLevels(ctx context.Context, policyIDs []string) (map[string][]models.ApprovalLevel, error) {
	query, args, err := sqlx.In(`SELECT id, policy_id, level_order, approver_role FROM approval_levels WHERE policy_id IN (?) ORDER BY level_order ASC`, policyIDs)
	if err != nil {
		return nil, fmt.Errorf("build levels query: %w", err)
	}
	query = r.db.Rebind(query)

	var levels []models.ApprovalLevel
	if err := r.db.SelectContext(ctx, &levels, query, args...); err != nil {
		return nil, fmt.Errorf("load policy levels: %w", err)
	}

	byPolicy := make(map[string][]models.ApprovalLevel, len(policyIDs))
	for _, level := range levels {
		byPolicy[level.PolicyID] = append(byPolicy[level.PolicyID], level)
	}
	for _, list := range byPolicy {
		sort.Slice(list, func(i, j int) bool { return list[i].LevelOrder < list[j].LevelOrder })
	}
	return byPolicy, nil
}
