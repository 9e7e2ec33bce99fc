package repository

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

const untitled = "Untitled"

// CourseRepository loads course metadata and lesson outlines.
type CourseRepository struct {
	store docstore.Store
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(store docstore.Store) *CourseRepository {
	return &CourseRepository{store: store}
}

// Fetch loads the course document and its lessons concurrently and builds the
// effective lesson sequence: header rows and hidden lessons removed, sorted
// by explicit order ascending with missing order last, then by creation time
// ascending with missing timestamps treated as epoch zero.
//
// A course whose document is absent still resolves (with a fallback title),
// and a course with zero effective lessons still resolves with an empty
// sequence so callers can tell "empty" apart from "failed to load".
func (r *CourseRepository) Fetch(ctx context.Context, courseID string) (*models.Course, error) {
	var (
		title      = untitled
		lessonDocs []docstore.Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, found, err := r.store.GetDocument(gctx, fmt.Sprintf("courses/%s", courseID))
		if err != nil {
			return fmt.Errorf("get course %s: %w", courseID, err)
		}
		if found {
			title = doc.String("title", untitled)
		}
		return nil
	})
	g.Go(func() error {
		docs, err := r.store.ListCollection(gctx, fmt.Sprintf("courses/%s/lessons", courseID))
		if err != nil {
			return fmt.Errorf("list lessons for course %s: %w", courseID, err)
		}
		lessonDocs = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lessons := make([]models.Lesson, 0, len(lessonDocs))
	for _, doc := range lessonDocs {
		if doc.String("type", "") == models.LessonKindHeader || doc.Bool("isHidden") {
			continue
		}
		order, hasOrder := doc.FloatOK("order")
		lessons = append(lessons, models.Lesson{
			ID:        doc.ID,
			Title:     doc.String("title", untitled),
			Order:     order,
			HasOrder:  hasOrder,
			CreatedAt: doc.Time("createdAt"),
		})
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.HasOrder != b.HasOrder {
			return a.HasOrder
		}
		if a.HasOrder && a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return &models.Course{ID: courseID, Title: title, Lessons: lessons}, nil
}
