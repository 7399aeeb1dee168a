package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

func TestExportChainCSV(t *testing.T) {
	store := newStepStoreStub()
	seeded := seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER", "HR")
	approver := "mgr-1"
	store.steps[seeded[0].ID].Status = models.StepStatusApproved
	store.steps[seeded[0].ID].ApproverID = &approver
	svc := NewExportService(store, nil)

	content, filename, mimeType, err := svc.ExportChain(context.Background(), "", models.ModuleLeaveRequest, "leave-1", ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "approval-history-leave_request-leave-1.csv", filename)
	require.Equal(t, "text/csv", mimeType)

	body := string(content)
	require.Contains(t, body, "Level,Required Role,Status,Approver,Action At,Notes")
	require.Contains(t, body, "1,MANAGER,APPROVED,mgr-1")
	require.Contains(t, body, "2,HR,PENDING")
	require.Equal(t, 3, strings.Count(strings.TrimSpace(body), "\n")+1)
}

func TestExportChainPDF(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModulePurchaseRequest, "pr-1", "MANAGER")
	svc := NewExportService(store, nil)

	content, filename, mimeType, err := svc.ExportChain(context.Background(), "", models.ModulePurchaseRequest, "pr-1", ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "approval-history-purchase_request-pr-1.pdf", filename)
	require.Equal(t, "application/pdf", mimeType)
	require.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestExportChainEmptyChain(t *testing.T) {
	svc := NewExportService(newStepStoreStub(), nil)

	_, _, _, err := svc.ExportChain(context.Background(), "t1", models.ModuleLeaveRequest, "leave-1", ExportFormatCSV)
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
	require.Equal(t, "no approval chain exists for this entity", typed.Message)
}

func TestExportChainUnknownModule(t *testing.T) {
	svc := NewExportService(newStepStoreStub(), nil)

	_, _, _, err := svc.ExportChain(context.Background(), "t1", models.ApprovalModule("EXPENSE"), "x", ExportFormatCSV)
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestExportChainUnsupportedFormat(t *testing.T) {
	store := newStepStoreStub()
	seedChain(t, store, models.ModuleLeaveRequest, "leave-1", "MANAGER")
	svc := NewExportService(store, nil)

	_, _, _, err := svc.ExportChain(context.Background(), "", models.ModuleLeaveRequest, "leave-1", ExportFormat("xml"))
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, typed.Code)
	require.Contains(t, typed.Message, "unsupported export format")
}
