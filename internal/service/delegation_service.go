package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-approval-api/internal/dto"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type delegationStore interface {
	Create(ctx context.Context, delegation *models.ApproverDelegation) error
	Revoke(ctx context.Context, id, delegatorID string, revokedAt time.Time) error
	ListByDelegator(ctx context.Context, tenantID, delegatorID string) ([]models.ApproverDelegation, error)
}

// DelegationService manages the lifecycle of approver delegations.
type DelegationService struct {
	repo   delegationStore
	users  userDirectory
	audit  auditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewDelegationService constructs the service.
func NewDelegationService(repo delegationStore, users userDirectory, audit auditLogger, logger *zap.Logger) *DelegationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DelegationService{repo: repo, users: users, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create grants the delegator's approval role to the delegate for the
// requested window. The delegator must hold an approval role worth
// delegating and cannot delegate to themselves.
func (s *DelegationService) Create(ctx context.Context, req dto.CreateDelegationRequest, actor *models.JWTClaims) (*models.ApproverDelegation, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication context")
	}
	if strings.TrimSpace(req.DelegateID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delegate_id is required")
	}
	if req.DelegateID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot delegate to yourself")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must be after starts_at")
	}

	delegator, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delegator")
	}
	if delegator.ApprovalRole == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delegator has no approval role to delegate")
	}

	delegate, err := s.users.FindByID(ctx, req.DelegateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "delegate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delegate")
	}
	if !delegate.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delegate account is inactive")
	}

	delegation := &models.ApproverDelegation{
		TenantID:    actor.TenantID,
		DelegatorID: delegator.ID,
		DelegateID:  delegate.ID,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedAt:   s.now(),
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		delegation.Reason = &reason
	}

	if err := s.repo.Create(ctx, delegation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create delegation")
	}

	s.emitAudit(ctx, actor, models.AuditActionDelegationCreate, delegation.ID)
	s.logger.Info("delegation created",
		zap.String("delegation_id", delegation.ID),
		zap.String("delegator_id", delegation.DelegatorID),
		zap.String("delegate_id", delegation.DelegateID))
	return delegation, nil
}

// Revoke deactivates a delegation owned by the acting user.
func (s *DelegationService) Revoke(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication context")
	}
	if err := s.repo.Revoke(ctx, id, actor.UserID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "delegation not found or already revoked")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke delegation")
	}
	s.emitAudit(ctx, actor, models.AuditActionDelegationRevoke, id)
	return nil
}

// ListMine returns the delegations granted by the acting user, newest first.
func (s *DelegationService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ApproverDelegation, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication context")
	}
	delegations, err := s.repo.ListByDelegator(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list delegations")
	}
	return delegations, nil
}

func (s *DelegationService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, delegationID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "approver_delegation",
		ResourceID: &delegationID,
		IPAddress:  "system",
		UserAgent:  "delegation-service",
	}
	if actor != nil {
		log.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
