package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/models"
)

func newQueryServiceForTest(store *stepStoreStub, users *userDirStub, delegations *delegationReaderStub) *ChainQueryService {
	if users == nil {
		users = newUserDirStub()
	}
	if delegations == nil {
		delegations = &delegationReaderStub{}
	}
	return NewChainQueryService(store, users, delegations, nil, time.Minute, nil)
}

func TestChainSummaryEmptyChain(t *testing.T) {
	svc := newQueryServiceForTest(newStepStoreStub(), nil, nil)

	summary, err := svc.GetApprovalChainSummary(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.Equal(t, models.ChainStatusNotStarted, summary.Status)
	require.Zero(t, summary.TotalSteps)
	require.Nil(t, summary.CurrentStep)
}

func TestChainSummaryRejectedWinsOverPending(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR", "DIRECTOR")
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	store.steps[seeded[1].ID].Status = models.StepStatusRejected
	svc := newQueryServiceForTest(store, nil, nil)

	summary, err := svc.GetApprovalChainSummary(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.Equal(t, models.ChainStatusRejected, summary.Status)
	require.Equal(t, 3, summary.TotalSteps)
	require.Equal(t, 1, summary.CompletedSteps)
	require.NotNil(t, summary.CurrentStep)
	require.Equal(t, 2, *summary.CurrentStep)
}

func TestChainSummaryAllApproved(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	store.steps[seeded[1].ID].Status = models.StepStatusApproved
	svc := newQueryServiceForTest(store, nil, nil)

	summary, err := svc.GetApprovalChainSummary(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.Equal(t, models.ChainStatusApproved, summary.Status)
	require.Equal(t, 2, summary.CompletedSteps)
	require.Nil(t, summary.CurrentStep)

	approved, err := svc.IsFullyApproved(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.True(t, approved)
}

func TestChainSummarySkippedStepsDoNotHoldCurrent(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModulePurchaseRequest, "pr-1", "MANAGER", "FINANCE", "DIRECTOR")
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	store.steps[seeded[1].ID].Status = models.StepStatusSkipped
	svc := newQueryServiceForTest(store, nil, nil)

	summary, err := svc.GetApprovalChainSummary(context.Background(), models.ModulePurchaseRequest, "pr-1", "")
	require.NoError(t, err)
	require.NotNil(t, summary.CurrentStep)
	require.Equal(t, 3, *summary.CurrentStep)
}

func TestWasRejected(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER")
	store.steps[seeded[0].ID].Status = models.StepStatusRejected
	svc := newQueryServiceForTest(store, nil, nil)

	rejected, err := svc.WasRejected(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.True(t, rejected)
}

func TestGetCurrentPendingStepNilWhenSettled(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER")
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	svc := newQueryServiceForTest(store, nil, nil)

	step, err := svc.GetCurrentPendingStep(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.Nil(t, step)
}

func TestGetCurrentPendingStepReturnsLowestOrder(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	svc := newQueryServiceForTest(store, nil, nil)

	step, err := svc.GetCurrentPendingStep(context.Background(), models.ModuleLeaveRequest, "leave-1", "")
	require.NoError(t, err)
	require.NotNil(t, step)
	require.Equal(t, 2, step.LevelOrder)
	require.Equal(t, "HR", step.RequiredRole)
}

func TestPendingApprovalsAdminSeesEverything(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	seedChain(t, store, models.ModuleAssetRequest, "asset-1", "FINANCE")
	users := newUserDirStub(&models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true})
	svc := newQueryServiceForTest(store, users, nil)

	steps, err := svc.GetPendingApprovalsForUser(context.Background(), "admin-1", "")
	require.NoError(t, err)
	require.Len(t, steps, 3)
}

func TestPendingApprovalsFiltersByOwnRole(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	users := newUserDirStub(&models.User{ID: "hr-1", Role: models.RoleEmployee, ApprovalRole: "HR", Active: true})
	svc := newQueryServiceForTest(store, users, nil)

	steps, err := svc.GetPendingApprovalsForUser(context.Background(), "hr-1", "")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "HR", steps[0].RequiredRole)
}

func TestPendingApprovalsIncludesDelegatedRoles(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	users := newUserDirStub(&models.User{ID: "hr-1", Role: models.RoleEmployee, ApprovalRole: "HR", Active: true})
	delegations := &delegationReaderStub{grants: []models.DelegationGrant{
		{ApproverDelegation: models.ApproverDelegation{DelegateID: "hr-1"}, DelegatorRole: "MANAGER"},
	}}
	svc := newQueryServiceForTest(store, users, delegations)

	steps, err := svc.GetPendingApprovalsForUser(context.Background(), "hr-1", "")
	require.NoError(t, err)
	require.Len(t, steps, 2)
}

func TestPendingApprovalsNoRolesReturnsNothing(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER")
	users := newUserDirStub(&models.User{ID: "emp-1", Role: models.RoleEmployee, Active: true})
	svc := newQueryServiceForTest(store, users, nil)

	steps, err := svc.GetPendingApprovalsForUser(context.Background(), "emp-1", "")
	require.NoError(t, err)
	require.Empty(t, steps)
}
