package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-approval-api/internal/dto"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type policyStore interface {
	ListActiveByModule(ctx context.Context, module models.ApprovalModule, tenantID string) ([]models.ApprovalPolicy, error)
	GetByID(ctx context.Context, id string) (*models.ApprovalPolicy, error)
	List(ctx context.Context, tenantID string) ([]models.ApprovalPolicy, error)
	Create(ctx context.Context, policy *models.ApprovalPolicy) error
	Update(ctx context.Context, policy *models.ApprovalPolicy) error
	Delete(ctx context.Context, id string) error
}

// PolicyService selects applicable policies and manages policy definitions.
type PolicyService struct {
	repo   policyStore
	audit  auditLogger
	logger *zap.Logger
}

// NewPolicyService constructs the service.
func NewPolicyService(repo policyStore, audit auditLogger, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{repo: repo, audit: audit, logger: logger}
}

// FindApplicablePolicy returns the single policy that governs the given
// module and thresholds, or nil when no approval is configured. Candidates
// arrive ordered by priority descending with creation time as the stable
// tie-breaker, so the first match wins.
func (s *PolicyService) FindApplicablePolicy(ctx context.Context, module models.ApprovalModule, thresholds models.PolicyThresholds, tenantID string) (*models.ApprovalPolicy, error) {
	if !module.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown approval module: %s", module))
	}
	policies, err := s.repo.ListActiveByModule(ctx, module, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policies")
	}
	for i := range policies {
		if policies[i].Matches(thresholds) {
			return &policies[i], nil
		}
	}
	return nil, nil
}

// Get returns a policy by id.
func (s *PolicyService) Get(ctx context.Context, id string) (*models.ApprovalPolicy, error) {
	policy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policy")
	}
	return policy, nil
}

// List returns the tenant's policies.
func (s *PolicyService) List(ctx context.Context, tenantID string) ([]models.ApprovalPolicy, error) {
	policies, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval policies")
	}
	return policies, nil
}

// Create validates and stores a new policy definition.
func (s *PolicyService) Create(ctx context.Context, req dto.CreatePolicyRequest, actor *models.JWTClaims) (*models.ApprovalPolicy, error) {
	policy, err := s.buildPolicy(req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval policy")
	}
	s.emitAudit(ctx, actor, models.AuditActionPolicyCreate, policy.ID)
	return policy, nil
}

// Update replaces an existing policy definition. In-flight chains keep the
// roles copied at step creation time.
func (s *PolicyService) Update(ctx context.Context, id string, req dto.UpdatePolicyRequest, actor *models.JWTClaims) (*models.ApprovalPolicy, error) {
	policy, err := s.buildPolicy(req, actor)
	if err != nil {
		return nil, err
	}
	policy.ID = id
	if err := s.repo.Update(ctx, policy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval policy")
	}
	s.emitAudit(ctx, actor, models.AuditActionPolicyUpdate, id)
	return policy, nil
}

// Delete removes a policy definition.
func (s *PolicyService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "approval policy not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete approval policy")
	}
	s.emitAudit(ctx, actor, models.AuditActionPolicyDelete, id)
	return nil
}

func (s *PolicyService) buildPolicy(req dto.CreatePolicyRequest, actor *models.JWTClaims) (*models.ApprovalPolicy, error) {
	if !req.Module.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown approval module: %s", req.Module))
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if req.MinAmount != nil && req.MaxAmount != nil && *req.MinAmount > *req.MaxAmount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_amount must not exceed max_amount")
	}
	if req.MinDays != nil && req.MaxDays != nil && *req.MinDays > *req.MaxDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_days must not exceed max_days")
	}
	levels, err := buildLevels(req.Levels)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	tenantID := ""
	if actor != nil {
		tenantID = actor.TenantID
	}
	return &models.ApprovalPolicy{
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		Module:    req.Module,
		IsActive:  isActive,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		MinDays:   req.MinDays,
		MaxDays:   req.MaxDays,
		Priority:  req.Priority,
		Levels:    levels,
	}, nil
}

// buildLevels validates that level orders are unique, 1-based, and
// contiguous, and normalizes approver roles to upper case.
func buildLevels(inputs []dto.PolicyLevelInput) ([]models.ApprovalLevel, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one approval level is required")
	}
	levels := make([]models.ApprovalLevel, 0, len(inputs))
	seen := make(map[int]struct{}, len(inputs))
	for _, input := range inputs {
		role := strings.ToUpper(strings.TrimSpace(input.ApproverRole))
		if role == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "approver_role is required for every level")
		}
		if _, dup := seen[input.LevelOrder]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate level_order %d", input.LevelOrder))
		}
		seen[input.LevelOrder] = struct{}{}
		levels = append(levels, models.ApprovalLevel{LevelOrder: input.LevelOrder, ApproverRole: role})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelOrder < levels[j].LevelOrder })
	for i, level := range levels {
		if level.LevelOrder != i+1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "level orders must be contiguous starting at 1")
		}
	}
	return levels, nil
}

func (s *PolicyService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, policyID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "approval_policy",
		ResourceID: &policyID,
		IPAddress:  "system",
		UserAgent:  "policy-service",
	}
	if actor != nil {
		log.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
