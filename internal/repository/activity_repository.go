package repository

import (
	"context"
	"fmt"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

// ActivityRepository loads per-day activity counters for students. Activity
// documents are keyed by their UTC day string (YYYY-MM-DD).
type ActivityRepository struct {
	store docstore.Store
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(store docstore.Store) *ActivityRepository {
	return &ActivityRepository{store: store}
}

// ListWindow returns the student's activity records restricted to the given
// set of day keys. One collection read per student, filtered client side.
func (r *ActivityRepository) ListWindow(ctx context.Context, studentID string, window map[string]struct{}) ([]models.DayActivity, error) {
	path := fmt.Sprintf("users/%s/activity", studentID)
	docs, err := r.store.ListCollection(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list activity %s: %w", path, err)
	}

	var days []models.DayActivity
	for _, doc := range docs {
		if _, ok := window[doc.ID]; !ok {
			continue
		}
		days = append(days, models.DayActivity{
			Date:             doc.ID,
			LessonsCompleted: doc.Int("lessonsCompleted"),
		})
	}
	return days, nil
}
