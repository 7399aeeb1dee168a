package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
	"github.com/noah-isme/hrms-approval-api/pkg/export"
)

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type chainStepReader interface {
	ListByChain(ctx context.Context, tenantID string, entityType models.ApprovalModule, entityID string) ([]models.ApprovalStep, error)
}

// ExportService renders approval chain histories as downloadable documents.
type ExportService struct {
	steps  chainStepReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(steps chainStepReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		steps:  steps,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ExportChain renders the chain history for the entity in the requested
// format. Returns content bytes, a suggested filename, and the MIME type.
func (s *ExportService) ExportChain(ctx context.Context, tenantID string, module models.ApprovalModule, entityID string, format ExportFormat) ([]byte, string, string, error) {
	if !module.IsValid() {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown approval module: %s", module))
	}
	steps, err := s.steps.ListByChain(ctx, tenantID, module, entityID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval chain")
	}
	if len(steps) == 0 {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "no approval chain exists for this entity")
	}

	table := buildChainTable(module, entityID, steps)

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return content, exportFilename(module, entityID, "csv"), "text/csv", nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return content, exportFilename(module, entityID, "pdf"), "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
}

func buildChainTable(module models.ApprovalModule, entityID string, steps []models.ApprovalStep) export.Table {
	rows := make([][]string, 0, len(steps))
	for _, step := range steps {
		approver := ""
		if step.ApproverID != nil {
			approver = *step.ApproverID
		}
		actionAt := ""
		if step.ActionAt != nil {
			actionAt = step.ActionAt.UTC().Format(time.RFC3339)
		}
		notes := ""
		if step.Notes != nil {
			notes = *step.Notes
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", step.LevelOrder),
			step.RequiredRole,
			string(step.Status),
			approver,
			actionAt,
			notes,
		})
	}
	return export.Table{
		Title:   fmt.Sprintf("Approval History %s %s", module, entityID),
		Headers: []string{"Level", "Required Role", "Status", "Approver", "Action At", "Notes"},
		Rows:    rows,
	}
}

func exportFilename(module models.ApprovalModule, entityID, ext string) string {
	name := fmt.Sprintf("approval-history-%s-%s.%s", strings.ToLower(string(module)), entityID, ext)
	return strings.ReplaceAll(name, " ", "-")
}
