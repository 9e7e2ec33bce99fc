package repository

import (
	"context"
	"fmt"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

// ProgressRepository loads per-student per-course progress documents.
type ProgressRepository struct {
	store docstore.Store
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(store docstore.Store) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// Fetch returns the student's progress for a course. An absent document is
// not an error; it yields a record with no completed lessons. Transport
// failures are returned so the caller can decide how to degrade.
func (r *ProgressRepository) Fetch(ctx context.Context, studentID, courseID string) (models.ProgressRecord, error) {
	record := models.ProgressRecord{StudentID: studentID, CourseID: courseID}

	path := fmt.Sprintf("users/%s/progress/%s", studentID, courseID)
	doc, found, err := r.store.GetDocument(ctx, path)
	if err != nil {
		return record, fmt.Errorf("get progress %s: %w", path, err)
	}
	if found {
		record.CompletedLessonIDs = doc.Strings("completed")
	}
	return record, nil
}
