package repository

import (
	"context"
	"fmt"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

const enrollmentsCollection = "enrollments"

// EnrollmentRepository loads enrollment documents from the document store.
type EnrollmentRepository struct {
	store docstore.Store
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(store docstore.Store) *EnrollmentRepository {
	return &EnrollmentRepository{store: store}
}

// ListApproved returns every enrollment whose status is approved. This is the
// root set of the analytics pipeline; callers treat a failure here as fatal.
func (r *EnrollmentRepository) ListApproved(ctx context.Context) ([]models.Enrollment, error) {
	docs, err := r.store.QueryEquals(ctx, enrollmentsCollection, "status", models.EnrollmentStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved enrollments: %w", err)
	}

	enrollments := make([]models.Enrollment, 0, len(docs))
	for _, doc := range docs {
		enrollment := models.Enrollment{
			StudentID:    doc.String("userId", ""),
			CourseID:     doc.String("courseId", ""),
			Status:       doc.String("status", ""),
			StudentName:  doc.String("userName", "Unknown"),
			StudentEmail: doc.String("userEmail", ""),
		}
		if enrollment.StudentID == "" || enrollment.CourseID == "" {
			continue
		}
		enrollments = append(enrollments, enrollment)
	}
	return enrollments, nil
}
