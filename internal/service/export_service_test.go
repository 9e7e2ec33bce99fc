package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	appErrors "github.com/narin-dev/lms-analytics-api/pkg/errors"
)

func exportReportFixture() *models.LearningStatsReport {
	last := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	return &models.LearningStatsReport{
		ReportID:              "report-1",
		GeneratedAt:           time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		OverallCompletionRate: 62.5,
		CourseCompletionRates: []models.CourseCompletion{
			{CourseID: "algebra", Title: "Algebra", TotalLessons: 4, TotalStudents: 12, CompletedStudents: 3, AvgProgress: 62.5},
			{CourseID: "geometry", Title: "Geometry", TotalLessons: 5, TotalStudents: 8, CompletedStudents: 1, AvgProgress: 41.0},
		},
		TopActiveStudents: []models.ActiveStudent{
			{StudentID: "s1", Name: "Nok", ActiveDays: 9, LessonsCompleted: 17, Streak: 4, LastActive: &last},
		},
	}
}

func TestExportRenderCSV(t *testing.T) {
	svc := NewExportService()
	result, err := svc.Render(exportReportFixture(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "learning-stats-2026-08-29.csv", result.Filename)

	records, err := csv.NewReader(bytes.NewReader(result.Content)).ReadAll()
	require.NoError(t, err)
	// Header, two courses, separator, sub-table header, one student.
	require.Len(t, records, 6)
	assert.Equal(t, []string{"Course", "Lessons", "Students", "Completed", "Avg progress %"}, records[0])
	assert.Equal(t, []string{"Algebra", "4", "12", "3", "62.5"}, records[1])
	assert.Equal(t, []string{"Geometry", "5", "8", "1", "41.0"}, records[2])
	assert.Equal(t, "Top students", records[4][0])
	assert.Equal(t, []string{"Nok", "9", "17", "4", ""}, records[5])
}

func TestExportRenderPDF(t *testing.T) {
	svc := NewExportService()
	result, err := svc.Render(exportReportFixture(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "learning-stats-2026-08-29.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService()
	_, err := svc.Render(exportReportFixture(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportRejectsNilReport(t *testing.T) {
	svc := NewExportService()
	_, err := svc.Render(nil, ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
