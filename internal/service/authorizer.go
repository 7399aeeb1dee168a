package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type delegationReader interface {
	ListActiveGrants(ctx context.Context, tenantID, delegateID string, now time.Time) ([]models.DelegationGrant, error)
}

// Authorizer decides whether an actor may act on an approval step. The
// result is advisory: the step processor re-runs the same check before
// mutating state.
type Authorizer struct {
	users       userDirectory
	delegations delegationReader
	now         func() time.Time
}

// NewAuthorizer constructs the authorizer.
func NewAuthorizer(users userDirectory, delegations delegationReader) *Authorizer {
	return &Authorizer{users: users, delegations: delegations, now: func() time.Time { return time.Now().UTC() }}
}

// CanUserApprove resolves, in order: member existence, platform-wide
// administrative override, direct approval role match, then active
// delegations carrying the required role.
func (a *Authorizer) CanUserApprove(ctx context.Context, userID string, step *models.ApprovalStep) (models.AuthorizationResult, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthorizationResult{CanApprove: false, Reason: "Member not found"}, nil
		}
		return models.AuthorizationResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}

	if user.Role.IsAdministrative() {
		return models.AuthorizationResult{CanApprove: true}, nil
	}

	if user.ApprovalRole != "" && user.ApprovalRole == step.RequiredRole {
		return models.AuthorizationResult{CanApprove: true}, nil
	}

	grants, err := a.delegations.ListActiveGrants(ctx, step.TenantID, userID, a.now())
	if err != nil {
		return models.AuthorizationResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delegations")
	}
	for _, grant := range grants {
		if grant.DelegatorRole == step.RequiredRole {
			return models.AuthorizationResult{CanApprove: true, ViaDelegation: true}, nil
		}
	}

	return models.AuthorizationResult{
		CanApprove: false,
		Reason:     fmt.Sprintf("Requires role %s", step.RequiredRole),
	}, nil
}
