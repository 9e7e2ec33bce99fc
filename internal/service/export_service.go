package service

import (
	"fmt"
	"strconv"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	appErrors "github.com/narin-dev/lms-analytics-api/pkg/errors"
	"github.com/narin-dev/lms-analytics-api/pkg/export"
)

// Export formats supported by the report exporter.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportService renders a learning-stats report into downloadable documents.
type ExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewExportService constructs the exporter.
func NewExportService() *ExportService {
	return &ExportService{csv: export.NewCSVExporter(), pdf: export.NewPDFExporter()}
}

// ExportResult carries rendered bytes plus download metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Render produces the report's completion and top-student tables in the
// requested format.
func (s *ExportService) Render(report *models.LearningStatsReport, format string) (*ExportResult, error) {
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no report to export")
	}

	dataset := buildExportDataset(report)
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    exportFilename(report, "csv"),
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Learning statistics")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf export failed")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    exportFilename(report, "pdf"),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func exportFilename(report *models.LearningStatsReport, ext string) string {
	return fmt.Sprintf("learning-stats-%s.%s", report.GeneratedAt.Format("2006-01-02"), ext)
}

func buildExportDataset(report *models.LearningStatsReport) export.Dataset {
	headers := []string{"Course", "Lessons", "Students", "Completed", "Avg progress %"}
	rows := make([]map[string]string, 0, len(report.CourseCompletionRates)+len(report.TopActiveStudents)+1)

	for _, course := range report.CourseCompletionRates {
		rows = append(rows, map[string]string{
			"Course":         course.Title,
			"Lessons":        strconv.Itoa(course.TotalLessons),
			"Students":       strconv.Itoa(course.TotalStudents),
			"Completed":      strconv.Itoa(course.CompletedStudents),
			"Avg progress %": strconv.FormatFloat(course.AvgProgress, 'f', 1, 64),
		})
	}

	// Blank separator, then the top-student table reusing the same columns.
	rows = append(rows, map[string]string{})
	rows = append(rows, map[string]string{
		"Course":         "Top students",
		"Lessons":        "Active days",
		"Students":       "Lessons done",
		"Completed":      "Streak",
		"Avg progress %": "",
	})
	for _, student := range report.TopActiveStudents {
		rows = append(rows, map[string]string{
			"Course":    student.Name,
			"Lessons":   strconv.Itoa(student.ActiveDays),
			"Students":  strconv.Itoa(student.LessonsCompleted),
			"Completed": strconv.Itoa(student.Streak),
		})
	}

	return export.Dataset{Headers: headers, Rows: rows}
}
