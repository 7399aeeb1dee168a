package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	"github.com/noah-isme/hrms-approval-api/internal/repository"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

// DefaultBypassNote is recorded when an administrator bypasses a chain
// without providing a note.
const DefaultBypassNote = "Approved by admin (bypass)"

type stepStore interface {
	BulkInsert(ctx context.Context, steps []models.ApprovalStep) error
	GetByID(ctx context.Context, id string) (*models.ApprovalStep, error)
	ListByChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) ([]models.ApprovalStep, error)
	HasChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) (bool, error)
	MarkApproved(ctx context.Context, params repository.DecisionParams) error
	MarkRejected(ctx context.Context, params repository.DecisionParams) error
	BypassPending(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID, adminID string, actionAt time.Time, notes string) (int64, error)
	DeleteChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) error
}

type stepAuthorizer interface {
	CanUserApprove(ctx context.Context, userID string, step *models.ApprovalStep) (models.AuthorizationResult, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ApprovalService drives the write path of the workflow engine: chain
// initialization, step decisions, administrative bypass, and chain removal.
type ApprovalService struct {
	steps      stepStore
	authorizer stepAuthorizer
	audit      auditLogger
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewApprovalService constructs the service.
func NewApprovalService(steps stepStore, authorizer stepAuthorizer, audit auditLogger, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		steps:      steps,
		authorizer: authorizer,
		audit:      audit,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// InitializeChain materializes one PENDING step per policy level, ascending
// by level order, in a single batch insert. Calling it twice for the same
// entity is a caller error; handlers guard with HasChain first.
func (s *ApprovalService) InitializeChain(ctx context.Context, module models.ApprovalModule, entityID string, policy *models.ApprovalPolicy, tenantID string) ([]models.ApprovalStep, error) {
	if policy == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approval policy is required")
	}
	if len(policy.Levels) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approval policy has no levels")
	}

	steps := make([]models.ApprovalStep, 0, len(policy.Levels))
	for _, level := range policy.Levels {
		steps = append(steps, models.ApprovalStep{
			TenantID:     tenantID,
			EntityType:   module,
			EntityID:     entityID,
			LevelOrder:   level.LevelOrder,
			RequiredRole: level.ApproverRole,
			Status:       models.StepStatusPending,
		})
	}
	if err := s.steps.BulkInsert(ctx, steps); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval chain")
	}

	created, err := s.steps.ListByChain(ctx, tenantID, module, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created approval chain")
	}

	s.metrics.RecordChainInitialized(module)
	s.invalidateSummary(ctx, tenantID, module, entityID)
	s.emitAudit(ctx, nil, models.AuditActionChainInitialize, string(module), entityID, map[string]interface{}{
		"policy_id": policy.ID,
		"steps":     len(created),
	})
	return created, nil
}

// ProcessApproval applies an approve/reject decision to a single step. The
// transition is guarded by a conditional update so that exactly one of two
// racing actors succeeds; the loser receives a Conflict.
func (s *ApprovalService) ProcessApproval(ctx context.Context, stepID, actorID string, action models.ApprovalAction, notes string) (*models.ApprovalDecision, error) {
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be APPROVE or REJECT")
	}

	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Approval step not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval step")
	}
	if step.Status != models.StepStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, alreadyProcessedMessage(step.Status))
	}

	auth, err := s.authorizer.CanUserApprove(ctx, actorID, step)
	if err != nil {
		return nil, err
	}
	if !auth.CanApprove {
		return nil, appErrors.Clone(appErrors.ErrForbidden, auth.Reason)
	}

	params := repository.DecisionParams{
		StepID:     step.ID,
		TenantID:   step.TenantID,
		EntityType: step.EntityType,
		EntityID:   step.EntityID,
		ApproverID: actorID,
		ActionAt:   s.now(),
		Notes:      optionalString(notes),
	}

	switch action {
	case models.ActionApprove:
		err = s.steps.MarkApproved(ctx, params)
	case models.ActionReject:
		err = s.steps.MarkRejected(ctx, params)
	}
	if err != nil {
		// Zero rows affected means another actor resolved the step
		// between the read above and this write.
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordDecision(action, "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "Step already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply approval decision")
	}

	chain, err := s.steps.ListByChain(ctx, step.TenantID, step.EntityType, step.EntityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload approval chain")
	}

	decision := &models.ApprovalDecision{IsChainComplete: true, AllApproved: true}
	for i := range chain {
		if chain[i].ID == step.ID {
			decision.Step = &chain[i]
		}
		switch chain[i].Status {
		case models.StepStatusPending:
			decision.IsChainComplete = false
			decision.AllApproved = false
		case models.StepStatusRejected, models.StepStatusSkipped:
			decision.AllApproved = false
		}
	}

	s.metrics.RecordDecision(action, "success")
	s.invalidateSummary(ctx, step.TenantID, step.EntityType, step.EntityID)
	s.emitAudit(ctx, &actorID, models.AuditActionStepDecision, string(step.EntityType), step.EntityID, map[string]interface{}{
		"step_id":     step.ID,
		"level_order": step.LevelOrder,
		"action":      action,
		"delegated":   auth.ViaDelegation,
	})
	return decision, nil
}

// AdminBypass approves every remaining PENDING step of the chain in one
// bulk statement, ignoring roles and ordering. Calling it on a settled
// chain is a no-op.
func (s *ApprovalService) AdminBypass(ctx context.Context, module models.ApprovalModule, entityID, adminID, notes, tenantID string) error {
	note := strings.TrimSpace(notes)
	if note == "" {
		note = DefaultBypassNote
	}
	rows, err := s.steps.BypassPending(ctx, tenantID, module, entityID, adminID, s.now(), note)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bypass approval chain")
	}
	if rows > 0 {
		s.metrics.RecordBypass(module)
		s.invalidateSummary(ctx, tenantID, module, entityID)
	}
	s.emitAudit(ctx, &adminID, models.AuditActionChainBypass, string(module), entityID, map[string]interface{}{
		"steps_approved": rows,
	})
	return nil
}

// DeleteChain removes every step of the chain, used when the underlying
// entity is withdrawn or deleted.
func (s *ApprovalService) DeleteChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string, actor *models.JWTClaims) error {
	if err := s.steps.DeleteChain(ctx, tenantID, module, entityID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete approval chain")
	}
	s.invalidateSummary(ctx, tenantID, module, entityID)
	var actorID *string
	if actor != nil {
		actorID = &actor.UserID
	}
	s.emitAudit(ctx, actorID, models.AuditActionChainDelete, string(module), entityID, nil)
	return nil
}

// GetStep loads a single step by id.
func (s *ApprovalService) GetStep(ctx context.Context, stepID string) (*models.ApprovalStep, error) {
	step, err := s.steps.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Approval step not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval step")
	}
	return step, nil
}

// HasChain reports whether a chain already exists for the entity.
func (s *ApprovalService) HasChain(ctx context.Context, module models.ApprovalModule, entityID, tenantID string) (bool, error) {
	exists, err := s.steps.HasChain(ctx, tenantID, module, entityID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approval chain")
	}
	return exists, nil
}

func (s *ApprovalService) invalidateSummary(ctx context.Context, tenantID string, module models.ApprovalModule, entityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, summaryCacheKey(tenantID, module, entityID)); err != nil {
		s.logger.Warn("failed to invalidate chain summary cache",
			zap.String("module", string(module)),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (s *ApprovalService) emitAudit(ctx context.Context, userID *string, action, resource, resourceID string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var newValues []byte
	if payload != nil {
		newValues, _ = json.Marshal(payload)
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func alreadyProcessedMessage(status models.StepStatus) string {
	return fmt.Sprintf("Step already %s", strings.ToLower(string(status)))
}

func summaryCacheKey(tenantID string, module models.ApprovalModule, entityID string) string {
	return fmt.Sprintf("approvals:summary:%s:%s:%s", tenantID, module, entityID)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
