package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/pkg/config"
	appErrors "github.com/narin-dev/lms-analytics-api/pkg/errors"
)

type fakeEnrollments struct {
	mu    sync.Mutex
	items []models.Enrollment
	err   error
	calls int
}

func (f *fakeEnrollments) ListApproved(_ context.Context) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.items, f.err
}

func (f *fakeEnrollments) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCourses struct {
	mu          sync.Mutex
	courses     map[string]*models.Course
	failing     map[string]error
	inFlight    int
	maxInFlight int
}

func (f *fakeCourses) Fetch(_ context.Context, courseID string) (*models.Course, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(time.Millisecond)
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if err, ok := f.failing[courseID]; ok {
		return nil, err
	}
	course, ok := f.courses[courseID]
	if !ok {
		return &models.Course{ID: courseID, Title: "Untitled"}, nil
	}
	return course, nil
}

type fakeProgress struct {
	mu      sync.Mutex
	records map[string]models.ProgressRecord
	failing map[string]error
	calls   []string
}

func progressKey(studentID, courseID string) string {
	return studentID + "/" + courseID
}

func (f *fakeProgress) Fetch(_ context.Context, studentID, courseID string) (models.ProgressRecord, error) {
	key := progressKey(studentID, courseID)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.failing[key]; ok {
		return models.ProgressRecord{}, err
	}
	if record, ok := f.records[key]; ok {
		return record, nil
	}
	return models.ProgressRecord{StudentID: studentID, CourseID: courseID}, nil
}

type fakeActivity struct {
	mu        sync.Mutex
	days      map[string][]models.DayActivity
	failing   map[string]error
	requested []string
}

func (f *fakeActivity) ListWindow(_ context.Context, studentID string, _ map[string]struct{}) ([]models.DayActivity, error) {
	f.mu.Lock()
	f.requested = append(f.requested, studentID)
	f.mu.Unlock()

	if err, ok := f.failing[studentID]; ok {
		return nil, err
	}
	return f.days[studentID], nil
}

type stubCacheRepo struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	deletes []string
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{data: map[string][]byte{}}
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *stubCacheRepo) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	delete(s.data, key)
	return nil
}

type statsFixture struct {
	enrollments *fakeEnrollments
	courses     *fakeCourses
	progress    *fakeProgress
	activity    *fakeActivity
	cacheRepo   *stubCacheRepo
	svc         *LearningStatsService
}

func newStatsFixture(t *testing.T, cfg config.AnalyticsConfig) *statsFixture {
	t.Helper()

	f := &statsFixture{
		enrollments: &fakeEnrollments{
			items: []models.Enrollment{
				{StudentID: "s1", CourseID: "algebra", StudentName: "Nok", StudentEmail: "nok@example.com"},
				{StudentID: "s2", CourseID: "algebra", StudentName: "Beam", StudentEmail: "beam@example.com"},
				{StudentID: "s1", CourseID: "geometry", StudentName: "Nok", StudentEmail: "nok@example.com"},
			},
		},
		courses: &fakeCourses{
			courses: map[string]*models.Course{
				"algebra":  {ID: "algebra", Title: "Algebra", Lessons: lessonSeq("l1", "l2")},
				"geometry": {ID: "geometry", Title: "Geometry", Lessons: lessonSeq("g1", "g2")},
			},
		},
		progress: &fakeProgress{
			records: map[string]models.ProgressRecord{
				"s1/algebra": {StudentID: "s1", CourseID: "algebra", CompletedLessonIDs: []string{"l1", "l2"}},
				"s2/algebra": {StudentID: "s2", CourseID: "algebra", CompletedLessonIDs: []string{"l1"}},
			},
		},
		activity: &fakeActivity{
			days: map[string][]models.DayActivity{
				"s1": {
					{Date: "2026-08-29", LessonsCompleted: 2},
					{Date: "2026-08-28", LessonsCompleted: 1},
				},
			},
		},
		cacheRepo: newStubCacheRepo(),
	}

	cache := NewCacheService(f.cacheRepo, nil, time.Minute, zap.NewNop(), true)
	f.svc = NewLearningStatsService(LearningStatsParams{
		Enrollments: f.enrollments,
		Courses:     f.courses,
		Progress:    f.progress,
		Activity:    f.activity,
		Cache:       cache,
		Logger:      zap.NewNop(),
		Config:      cfg,
	})
	f.svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }
	f.svc.newID = func() string { return "report-1" }
	return f
}

func TestReportBuildsFullReport(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})

	report, cacheHit, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, "report-1", report.ReportID)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), report.GeneratedAt)

	require.Len(t, report.CourseCompletionRates, 2)
	// Algebra carries two students and sorts first.
	assert.Equal(t, "algebra", report.CourseCompletionRates[0].CourseID)
	assert.Equal(t, 75.0, report.CourseCompletionRates[0].AvgProgress)
	assert.Equal(t, 1, report.CourseCompletionRates[0].CompletedStudents)
	assert.Equal(t, "geometry", report.CourseCompletionRates[1].CourseID)
	assert.Equal(t, 0.0, report.CourseCompletionRates[1].AvgProgress)

	// (100 + 50 + 0) / 3 students.
	assert.Equal(t, 50.0, report.OverallCompletionRate)

	require.Len(t, report.MostEngagingLessons, 2)
	assert.Equal(t, "l1", report.MostEngagingLessons[0].LessonID)
	assert.Equal(t, 2, report.MostEngagingLessons[0].CompletionCount)

	require.Len(t, report.TopActiveStudents, 1)
	top := report.TopActiveStudents[0]
	assert.Equal(t, "s1", top.StudentID)
	assert.Equal(t, "Nok", top.Name)
	assert.Equal(t, 2, top.ActiveDays)
	assert.Equal(t, 3, top.LessonsCompleted)
	assert.Equal(t, 2, top.Streak)

	assert.Len(t, report.ActiveStudentsTrend, 14)
	// s2 has no activity records, so only s1 feeds the average.
	assert.Equal(t, 2.0, report.AverageActiveDays)
}

func TestReportFatalWhenEnrollmentsUnavailable(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	f.enrollments.err = errors.New("backend offline")

	_, _, err := f.svc.Report(context.Background())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSourceUnavailable.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrSourceUnavailable.Status, appErr.Status)
}

func TestReportOmitsFailedCourse(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	f.courses.failing = map[string]error{"geometry": errors.New("timeout")}

	report, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.CourseCompletionRates, 1)
	assert.Equal(t, "algebra", report.CourseCompletionRates[0].CourseID)
	for _, point := range report.DropOffPoints {
		assert.NotEqual(t, "geometry", point.CourseID)
	}
}

func TestReportTreatsFailedProgressAsEmpty(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	f.progress.failing = map[string]error{"s2/algebra": errors.New("timeout")}

	report, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.CourseCompletionRates, 2)
	// s2 still counts toward the course, at zero progress.
	assert.Equal(t, 2, report.CourseCompletionRates[0].TotalStudents)
	assert.Equal(t, 50.0, report.CourseCompletionRates[0].AvgProgress)
}

func TestReportSamplesActivityPopulation(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{ActivitySampleSize: 1})

	_, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	// Enrollment order decides the sample: s1 appears first.
	assert.Equal(t, []string{"s1"}, f.activity.requested)
}

func TestReportSkipsStudentOnActivityFailure(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	f.activity.failing = map[string]error{"s1": errors.New("timeout")}

	report, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.TopActiveStudents)
	assert.Equal(t, 0.0, report.AverageActiveDays)
}

func TestReportCourseFetchConcurrencyBounded(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{CourseBatchSize: 2})
	f.enrollments.items = nil
	for _, courseID := range []string{"c1", "c2", "c3", "c4", "c5"} {
		f.enrollments.items = append(f.enrollments.items, models.Enrollment{
			StudentID: "s1", CourseID: courseID, StudentName: "Nok",
		})
	}

	_, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, f.courses.maxInFlight, 2)
}

func TestReportServesCachedCopy(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})

	first, hit, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 1, f.enrollments.calls)

	second, hit, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.enrollments.calls)
	assert.Equal(t, first.ReportID, second.ReportID)
	assert.Equal(t, first.OverallCompletionRate, second.OverallCompletionRate)
}

func TestRefreshInvalidatesAndRebuilds(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})

	_, _, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.enrollments.calls)

	report, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.enrollments.calls)
	assert.Contains(t, f.cacheRepo.deletes, reportCacheKey)
	assert.NotNil(t, report)

	// The rebuilt report lands back in cache.
	_, hit, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestReportDeterministicOnFrozenInputs(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	g := newStatsFixture(t, config.AnalyticsConfig{})

	first, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	second, err := g.svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReportSurvivesCacheBackendFailure(t *testing.T) {
	f := newStatsFixture(t, config.AnalyticsConfig{})
	f.cacheRepo.getErr = errors.New("redis down")
	f.cacheRepo.setErr = errors.New("redis down")

	report, hit, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, report)
}
