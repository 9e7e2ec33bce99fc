package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/config"
	appErrors "github.com/narin-dev/lms-analytics-api/pkg/errors"
)

// reportCacheKey stores the latest computed report.
const reportCacheKey = "stats:learning"

type enrollmentLister interface {
	ListApproved(ctx context.Context) ([]models.Enrollment, error)
}

type courseFetcher interface {
	Fetch(ctx context.Context, courseID string) (*models.Course, error)
}

type progressFetcher interface {
	Fetch(ctx context.Context, studentID, courseID string) (models.ProgressRecord, error)
}

type activityLister interface {
	ListWindow(ctx context.Context, studentID string, window map[string]struct{}) ([]models.DayActivity, error)
}

// LearningStatsService reconstructs per-student per-course learning progress
// from the document store and derives the admin dashboard report. The
// pipeline runs its stages strictly in sequence because each stage's fetch
// targets come out of the previous stage's result set; inside a stage,
// independent fetches fan out in bounded batches.
type LearningStatsService struct {
	enrollments enrollmentLister
	courses     courseFetcher
	progress    progressFetcher
	activity    activityLister
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
	cfg         config.AnalyticsConfig
}

// LearningStatsParams groups constructor dependencies.
type LearningStatsParams struct {
	Enrollments enrollmentLister
	Courses     courseFetcher
	Progress    progressFetcher
	Activity    activityLister
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      config.AnalyticsConfig
}

// NewLearningStatsService constructs the service with sane defaults.
func NewLearningStatsService(params LearningStatsParams) *LearningStatsService {
	cfg := params.Config
	if cfg.CourseBatchSize <= 0 {
		cfg.CourseBatchSize = 5
	}
	if cfg.StudentBatchSize <= 0 {
		cfg.StudentBatchSize = 10
	}
	if cfg.ActivitySampleSize <= 0 {
		cfg.ActivitySampleSize = 30
	}
	if cfg.ActivityWindowDays <= 0 {
		cfg.ActivityWindowDays = 14
	}
	if cfg.TopLessons <= 0 {
		cfg.TopLessons = 10
	}
	if cfg.TopDropOffs <= 0 {
		cfg.TopDropOffs = 8
	}
	if cfg.TopStudents <= 0 {
		cfg.TopStudents = 10
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 30 * time.Second
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearningStatsService{
		enrollments: params.Enrollments,
		courses:     params.Courses,
		progress:    params.Progress,
		activity:    params.Activity,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		cfg:         cfg,
	}
}

// Report returns the learning-stats report, serving a cached copy when one
// is fresh. The boolean reports cache utilisation.
func (s *LearningStatsService) Report(ctx context.Context) (*models.LearningStatsReport, bool, error) {
	if s.cache != nil {
		var cached models.LearningStatsReport
		if hit, err := s.cache.Get(ctx, reportCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	report, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}
	s.persist(ctx, report)
	return report, false, nil
}

// Refresh drops any cached report and recomputes it from source.
func (s *LearningStatsService) Refresh(ctx context.Context) (*models.LearningStatsReport, error) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, reportCacheKey)
	}
	report, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, report)
	return report, nil
}

func (s *LearningStatsService) persist(ctx context.Context, report *models.LearningStatsReport) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, reportCacheKey, report, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.Error(err))
	}
}

func (s *LearningStatsService) build(ctx context.Context) (*models.LearningStatsReport, error) {
	start := time.Now()

	enrollments, err := s.loadEnrollments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code,
			appErrors.ErrSourceUnavailable.Status, "enrollment query failed")
	}

	idx := indexEnrollments(enrollments)

	courses, err := s.loadCourses(ctx, idx.courseIDs)
	if err != nil {
		return nil, err
	}

	progress, err := s.loadProgress(ctx, idx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	window := lastNDays(now, s.cfg.ActivityWindowDays)
	windowSet := make(map[string]struct{}, len(window))
	for _, day := range window {
		windowSet[day] = struct{}{}
	}

	sample := idx.students
	if len(sample) > s.cfg.ActivitySampleSize {
		sample = sample[:s.cfg.ActivitySampleSize]
	}

	activity, err := s.loadActivity(ctx, sample, windowSet)
	if err != nil {
		return nil, err
	}

	progressByCourse := groupProgressByCourse(progress)
	completions, overall := buildCourseCompletions(idx.courseIDs, courses, progressByCourse)
	engaging := buildEngagingLessons(progress, courses, s.cfg.TopLessons)
	dropOffs := buildDropOffPoints(idx.courseIDs, courses, progressByCourse, s.cfg.TopDropOffs)
	topStudents, avgDays, trend := buildActivityStats(activityInputs{
		order:    sample,
		activity: activity,
		contacts: idx.contacts,
		window:   window,
		today:    now,
		limit:    s.cfg.TopStudents,
	})

	// A cancelled pipeline has no meaningful partial report.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &models.LearningStatsReport{
		ReportID:              s.newID(),
		GeneratedAt:           now,
		OverallCompletionRate: overall,
		CourseCompletionRates: completions,
		AverageActiveDays:     avgDays,
		ActiveStudentsTrend:   trend,
		MostEngagingLessons:   engaging,
		DropOffPoints:         dropOffs,
		TopActiveStudents:     topStudents,
	}

	s.metrics.ObserveReportBuild(time.Since(start))
	s.logger.Info("learning stats report built",
		zap.String("report_id", report.ReportID),
		zap.Int("enrollments", len(enrollments)),
		zap.Int("courses", len(courses)),
		zap.Int("students_sampled", len(sample)),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

type enrollmentIndex struct {
	courseIDs      []string
	students       []string
	studentCourses map[string][]string
	contacts       map[string]studentContact
}

// indexEnrollments derives the pipeline's fetch targets from the root set,
// deduplicating while keeping first-appearance order. The student order
// matters: the activity stage samples the first students encountered.
func indexEnrollments(enrollments []models.Enrollment) enrollmentIndex {
	idx := enrollmentIndex{
		studentCourses: map[string][]string{},
		contacts:       map[string]studentContact{},
	}
	seenCourses := map[string]struct{}{}

	for _, e := range enrollments {
		if _, ok := seenCourses[e.CourseID]; !ok {
			seenCourses[e.CourseID] = struct{}{}
			idx.courseIDs = append(idx.courseIDs, e.CourseID)
		}

		courses, known := idx.studentCourses[e.StudentID]
		if !known {
			idx.students = append(idx.students, e.StudentID)
			idx.contacts[e.StudentID] = studentContact{name: e.StudentName, email: e.StudentEmail}
		}
		if !containsString(courses, e.CourseID) {
			idx.studentCourses[e.StudentID] = append(courses, e.CourseID)
		}
	}
	return idx
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func (s *LearningStatsService) loadEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	start := time.Now()
	enrollments, err := s.enrollments.ListApproved(stageCtx)
	s.metrics.ObserveStage("enrollments", time.Since(start))
	return enrollments, err
}

// loadCourses fetches course metadata in fixed-size concurrent batches.
// A failed course is logged and omitted from the map; downstream treats it
// as not found.
func (s *LearningStatsService) loadCourses(ctx context.Context, courseIDs []string) (map[string]*models.Course, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	start := time.Now()
	defer func() { s.metrics.ObserveStage("courses", time.Since(start)) }()

	courses := make(map[string]*models.Course, len(courseIDs))
	var mu sync.Mutex

	for base := 0; base < len(courseIDs); base += s.cfg.CourseBatchSize {
		end := base + s.cfg.CourseBatchSize
		if end > len(courseIDs) {
			end = len(courseIDs)
		}

		g, gctx := errgroup.WithContext(stageCtx)
		for _, courseID := range courseIDs[base:end] {
			courseID := courseID
			g.Go(func() error {
				course, err := s.courses.Fetch(gctx, courseID)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					s.metrics.RecordDegradedFetch("courses")
					s.logger.Warn("course fetch failed, omitting from report",
						zap.String("course_id", courseID), zap.Error(err))
					return nil
				}
				mu.Lock()
				courses[courseID] = course
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return courses, nil
}

// loadProgress fetches every (student, course) progress document. Students
// fan out in batches; each student's own course fetches run sequentially so
// peak concurrency stays near the batch size no matter how many courses one
// student is enrolled in. A failed fetch degrades to an empty record.
func (s *LearningStatsService) loadProgress(ctx context.Context, idx enrollmentIndex) ([]models.ProgressRecord, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	start := time.Now()
	defer func() { s.metrics.ObserveStage("progress", time.Since(start)) }()

	perStudent := make([][]models.ProgressRecord, len(idx.students))

	for base := 0; base < len(idx.students); base += s.cfg.StudentBatchSize {
		end := base + s.cfg.StudentBatchSize
		if end > len(idx.students) {
			end = len(idx.students)
		}

		g, gctx := errgroup.WithContext(stageCtx)
		for offset, studentID := range idx.students[base:end] {
			slot := base + offset
			studentID := studentID
			g.Go(func() error {
				records := make([]models.ProgressRecord, 0, len(idx.studentCourses[studentID]))
				for _, courseID := range idx.studentCourses[studentID] {
					record, err := s.progress.Fetch(gctx, studentID, courseID)
					if err != nil {
						if gctx.Err() != nil {
							return gctx.Err()
						}
						s.metrics.RecordDegradedFetch("progress")
						s.logger.Warn("progress fetch failed, treating as empty",
							zap.String("student_id", studentID),
							zap.String("course_id", courseID), zap.Error(err))
						record = models.ProgressRecord{StudentID: studentID, CourseID: courseID}
					}
					records = append(records, record)
				}
				perStudent[slot] = records
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var progress []models.ProgressRecord
	for _, records := range perStudent {
		progress = append(progress, records...)
	}
	return progress, nil
}

// loadActivity fetches window activity for the sampled students in batches.
// A failed fetch drops the student from the sample rather than aborting.
func (s *LearningStatsService) loadActivity(ctx context.Context, students []string, window map[string]struct{}) (map[string][]models.DayActivity, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	start := time.Now()
	defer func() { s.metrics.ObserveStage("activity", time.Since(start)) }()

	activity := make(map[string][]models.DayActivity, len(students))
	var mu sync.Mutex

	for base := 0; base < len(students); base += s.cfg.StudentBatchSize {
		end := base + s.cfg.StudentBatchSize
		if end > len(students) {
			end = len(students)
		}

		g, gctx := errgroup.WithContext(stageCtx)
		for _, studentID := range students[base:end] {
			studentID := studentID
			g.Go(func() error {
				days, err := s.activity.ListWindow(gctx, studentID, window)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					s.metrics.RecordDegradedFetch("activity")
					s.logger.Warn("activity fetch failed, skipping student",
						zap.String("student_id", studentID), zap.Error(err))
					return nil
				}
				mu.Lock()
				activity[studentID] = days
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return activity, nil
}
