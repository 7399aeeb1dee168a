package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type pendingStepLister interface {
	ListByChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) ([]models.ApprovalStep, error)
	HasChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) (bool, error)
	FirstPending(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) (*models.ApprovalStep, error)
	ListPending(ctx context.Context, tenantID string) ([]models.ApprovalStep, error)
	ListPendingForRoles(ctx context.Context, tenantID string, roles []string) ([]models.ApprovalStep, error)
}

// ChainQueryService is the read-only view over the step table. Reads are
// not isolated from concurrent writes; callers deciding on the result must
// re-fetch immediately before acting.
type ChainQueryService struct {
	steps       pendingStepLister
	users       userDirectory
	delegations delegationReader
	cache       *CacheService
	summaryTTL  time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewChainQueryService constructs the service.
func NewChainQueryService(steps pendingStepLister, users userDirectory, delegations delegationReader, cache *CacheService, summaryTTL time.Duration, logger *zap.Logger) *ChainQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainQueryService{
		steps:       steps,
		users:       users,
		delegations: delegations,
		cache:       cache,
		summaryTTL:  summaryTTL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HasApprovalChain reports whether at least one step exists for the entity.
func (s *ChainQueryService) HasApprovalChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	exists, err := s.steps.HasChain(ctx, tenantID, module, entityID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approval chain")
	}
	return exists, nil
}

// GetChainSteps returns the full ordered chain.
func (s *ChainQueryService) GetChainSteps(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) ([]models.ApprovalStep, error) {
	steps, err := s.steps.ListByChain(ctx, tenantID, module, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval chain")
	}
	return steps, nil
}

// GetCurrentPendingStep returns the PENDING step with the lowest level
// order, or nil when none remains.
func (s *ChainQueryService) GetCurrentPendingStep(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (*models.ApprovalStep, error) {
	step, err := s.steps.FirstPending(ctx, tenantID, module, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending step")
	}
	return step, nil
}

// IsFullyApproved reports whether the chain is non-empty and every step is
// APPROVED.
func (s *ChainQueryService) IsFullyApproved(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	summary, err := s.GetApprovalChainSummary(ctx, module, entityID, tenantID)
	if err != nil {
		return false, err
	}
	return summary.Status == models.ChainStatusApproved, nil
}

// WasRejected reports whether any step of the chain is REJECTED.
func (s *ChainQueryService) WasRejected(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	summary, err := s.GetApprovalChainSummary(ctx, module, entityID, tenantID)
	if err != nil {
		return false, err
	}
	return summary.Status == models.ChainStatusRejected, nil
}

// GetApprovalChainSummary derives the compact chain status view, cached for
// a short interval when caching is enabled.
func (s *ChainQueryService) GetApprovalChainSummary(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (models.ChainSummary, error) {
	key := summaryCacheKey(tenantID, module, entityID)
	var cached models.ChainSummary
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	steps, err := s.steps.ListByChain(ctx, tenantID, module, entityID)
	if err != nil {
		return models.ChainSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval chain")
	}
	summary := models.DeriveChainSummary(steps)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.summaryTTL); err != nil {
			s.logger.Warn("failed to cache chain summary", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, nil
}

// GetPendingApprovalsForUser returns the caller's pending queue:
// administrators see every PENDING step tenant-wide, other users see steps
// requiring their own approval role or the role of anyone who has delegated
// to them.
func (s *ChainQueryService) GetPendingApprovalsForUser(ctx context.Context, userID, tenantID string) ([]models.ApprovalStep, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}

	if user.Role.IsAdministrative() {
		steps, err := s.steps.ListPending(ctx, tenantID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending approvals")
		}
		return steps, nil
	}

	roles := make([]string, 0, 4)
	if user.ApprovalRole != "" {
		roles = append(roles, user.ApprovalRole)
	}
	grants, err := s.delegations.ListActiveGrants(ctx, tenantID, userID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delegations")
	}
	for _, grant := range grants {
		if grant.DelegatorRole != "" && !containsString(roles, grant.DelegatorRole) {
			roles = append(roles, grant.DelegatorRole)
		}
	}
	if len(roles) == 0 {
		return nil, nil
	}

	steps, err := s.steps.ListPendingForRoles(ctx, tenantID, roles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending approvals")
	}
	return steps, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
