package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/dto"
	"github.com/roadready/drivemis-api/pkg/export"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

// ReportFormat selects an export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type utilizationProvider interface {
	InstructorReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error)
	VehicleReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error)
	ClassroomReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error)
}

// ReportService renders utilization reports as downloadable CSV or PDF.
type ReportService struct {
	utilization utilizationProvider
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(utilization utilizationProvider, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{utilization: utilization, csv: csv, pdf: pdf, logger: logger}
}

// ExportUtilization renders the utilization report for one resource kind.
// kind is "instructors", "vehicles" or "classrooms".
func (s *ReportService) ExportUtilization(ctx context.Context, kind string, startDate, endDate string, format ReportFormat) (*ReportFile, error) {
	var (
		report dto.UtilizationReport
		err    error
	)
	switch kind {
	case "instructors":
		report, err = s.utilization.InstructorReport(ctx, startDate, endDate)
	case "vehicles":
		report, err = s.utilization.VehicleReport(ctx, startDate, endDate)
	case "classrooms":
		report, err = s.utilization.ClassroomReport(ctx, startDate, endDate)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report kind")
	}
	if err != nil {
		return nil, err
	}

	dataset := utilizationDataset(kind, report)
	title := fmt.Sprintf("%s utilization %s to %s", kind, report.StartDate, report.EndDate)
	base := fmt.Sprintf("utilization-%s-%s-%s", kind, report.StartDate, report.EndDate)

	switch format {
	case ReportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ReportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case ReportFormatPDF:
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ReportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func utilizationDataset(kind string, report dto.UtilizationReport) export.Dataset {
	headers := []string{"Code", "Name", "Branch", "Hours Assigned", "Hours Available", "Utilization"}
	if kind == "classrooms" {
		headers = append(headers[:3], append([]string{"Capacity"}, headers[3:]...)...)
	}
	rows := make([]map[string]string, 0, len(report.Resources))
	for _, resource := range report.Resources {
		row := map[string]string{
			"Code":            resource.Code,
			"Name":            resource.Name,
			"Branch":          resource.Branch,
			"Hours Assigned":  fmt.Sprintf("%.1f", resource.HoursAssigned),
			"Hours Available": fmt.Sprintf("%.1f", resource.HoursAvailable),
			"Utilization":     fmt.Sprintf("%.2f%%", resource.Rate),
		}
		if kind == "classrooms" {
			row["Capacity"] = fmt.Sprintf("%d", resource.Capacity)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
