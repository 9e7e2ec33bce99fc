package service

import (
	"math"
	"sort"
	"time"

	"github.com/narin-dev/lms-analytics-api/internal/models"
)

const dayLayout = "2006-01-02"

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// lastNDays returns the trailing n day keys ending at now, oldest first.
func lastNDays(now time.Time, n int) []string {
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, dayKey(now.AddDate(0, 0, -i)))
	}
	return days
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func groupProgressByCourse(progress []models.ProgressRecord) map[string][]models.ProgressRecord {
	grouped := make(map[string][]models.ProgressRecord)
	for _, record := range progress {
		grouped[record.CourseID] = append(grouped[record.CourseID], record)
	}
	return grouped
}

func lessonIDSet(course *models.Course) map[string]struct{} {
	set := make(map[string]struct{}, len(course.Lessons))
	for _, lesson := range course.Lessons {
		set[lesson.ID] = struct{}{}
	}
	return set
}

// buildCourseCompletions computes the per-course completion table and the
// student-weighted overall completion rate. Courses with no effective lessons
// or no progress records are excluded from both the table and the overall
// denominator. Lesson IDs foreign to the course's effective sequence are
// filtered out before any percentage is taken, so a completion percentage can
// never exceed 100.
func buildCourseCompletions(courseIDs []string, courses map[string]*models.Course, progressByCourse map[string][]models.ProgressRecord) ([]models.CourseCompletion, float64) {
	completions := make([]models.CourseCompletion, 0, len(courseIDs))
	var overallSum float64
	var overallCount int

	for _, courseID := range courseIDs {
		course, ok := courses[courseID]
		if !ok || len(course.Lessons) == 0 {
			continue
		}
		records := progressByCourse[courseID]
		if len(records) == 0 {
			continue
		}

		valid := lessonIDSet(course)
		total := float64(len(course.Lessons))
		var sumPercent float64
		completed := 0

		for _, record := range records {
			count := 0
			for _, lessonID := range record.CompletedLessonIDs {
				if _, ok := valid[lessonID]; ok {
					count++
				}
			}
			percent := float64(count) / total * 100
			sumPercent += percent
			if percent >= 100 {
				completed++
			}
		}

		overallSum += sumPercent
		overallCount += len(records)

		completions = append(completions, models.CourseCompletion{
			CourseID:          courseID,
			Title:             course.Title,
			TotalLessons:      len(course.Lessons),
			TotalStudents:     len(records),
			CompletedStudents: completed,
			AvgProgress:       round1(sumPercent / float64(len(records))),
		})
	}

	sort.SliceStable(completions, func(i, j int) bool {
		return completions[i].TotalStudents > completions[j].TotalStudents
	})

	overall := 0.0
	if overallCount > 0 {
		overall = round1(overallSum / float64(overallCount))
	}
	return completions, overall
}

// buildEngagingLessons counts completions per (course, lesson) pair and
// returns the top ranked lessons. Lesson IDs that do not resolve to a lesson
// in the course's effective sequence are dropped. Ties keep the order the
// records were processed in.
func buildEngagingLessons(progress []models.ProgressRecord, courses map[string]*models.Course, limit int) []models.EngagingLesson {
	type lessonKey struct {
		courseID string
		lessonID string
	}
	counts := make(map[lessonKey]*models.EngagingLesson)
	var order []lessonKey

	for _, record := range progress {
		course, ok := courses[record.CourseID]
		if !ok {
			continue
		}
		for _, lessonID := range record.CompletedLessonIDs {
			title, known := course.LessonTitle(lessonID)
			if !known {
				continue
			}
			key := lessonKey{courseID: record.CourseID, lessonID: lessonID}
			entry, seen := counts[key]
			if !seen {
				entry = &models.EngagingLesson{
					LessonID:    lessonID,
					Title:       title,
					CourseID:    record.CourseID,
					CourseTitle: course.Title,
				}
				counts[key] = entry
				order = append(order, key)
			}
			entry.CompletionCount++
		}
	}

	ranked := make([]models.EngagingLesson, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, *counts[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompletionCount > ranked[j].CompletionCount
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// buildDropOffPoints finds, per course, the single steepest positive decline
// in student reach between consecutive lessons, then pools and ranks those
// cliffs across courses. Courses with fewer than two effective lessons or
// fewer than two progress records emit nothing, as do courses whose reach
// never declines. The scan keeps strictly greater drops only, so the first
// maximum wins on ties, and negative drops (reach increasing mid-sequence)
// are never selected.
func buildDropOffPoints(courseIDs []string, courses map[string]*models.Course, progressByCourse map[string][]models.ProgressRecord, limit int) []models.DropOffPoint {
	var points []models.DropOffPoint

	for _, courseID := range courseIDs {
		course, ok := courses[courseID]
		if !ok || len(course.Lessons) < 2 {
			continue
		}
		records := progressByCourse[courseID]
		if len(records) < 2 {
			continue
		}

		completedSets := make([]map[string]struct{}, len(records))
		for i, record := range records {
			set := make(map[string]struct{}, len(record.CompletedLessonIDs))
			for _, lessonID := range record.CompletedLessonIDs {
				set[lessonID] = struct{}{}
			}
			completedSets[i] = set
		}

		reach := make([]int, len(course.Lessons))
		for i, lesson := range course.Lessons {
			for _, set := range completedSets {
				if _, ok := set[lesson.ID]; ok {
					reach[i]++
				}
			}
		}

		maxDrop := 0
		dropIdx := -1
		for i := 0; i < len(reach)-1; i++ {
			if drop := reach[i] - reach[i+1]; drop > maxDrop {
				maxDrop = drop
				dropIdx = i + 1
			}
		}
		if dropIdx < 0 {
			continue
		}

		prior := reach[dropIdx-1]
		if prior == 0 {
			prior = len(records)
		}
		percent := 0
		if prior > 0 {
			percent = int(math.Round(float64(prior-reach[dropIdx]) / float64(prior) * 100))
		}

		points = append(points, models.DropOffPoint{
			CourseID:            courseID,
			CourseTitle:         course.Title,
			LessonTitle:         course.Lessons[dropIdx].Title,
			LessonIndex:         dropIdx + 1,
			TotalLessons:        len(course.Lessons),
			StudentsReachedPrev: prior,
			StudentsReachedHere: reach[dropIdx],
			DropOffPercent:      percent,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].DropOffPercent > points[j].DropOffPercent
	})
	if len(points) > limit {
		points = points[:limit]
	}
	return points
}

type studentContact struct {
	name  string
	email string
}

type activityInputs struct {
	order    []string
	activity map[string][]models.DayActivity
	contacts map[string]studentContact
	window   []string
	today    time.Time
	limit    int
}

// buildActivityStats derives the active-student ranking, the average active
// days, and the daily active-student trend from the sampled activity window.
// Students with no activity records inside the window are excluded from the
// ranking and the average's denominator. The trend counts the sampled
// population only.
func buildActivityStats(in activityInputs) ([]models.ActiveStudent, float64, []models.TrendPoint) {
	type studentDays struct {
		student models.ActiveStudent
		days    map[string]struct{}
	}

	var stats []studentDays
	for _, studentID := range in.order {
		days := in.activity[studentID]
		if len(days) == 0 {
			continue
		}

		daySet := make(map[string]struct{}, len(days))
		lessons := 0
		var lastActive time.Time
		for _, day := range days {
			daySet[day.Date] = struct{}{}
			lessons += day.LessonsCompleted
			if parsed, err := time.Parse(dayLayout, day.Date); err == nil && parsed.After(lastActive) {
				lastActive = parsed
			}
		}

		contact := in.contacts[studentID]
		student := models.ActiveStudent{
			StudentID:        studentID,
			Name:             contact.name,
			Email:            contact.email,
			ActiveDays:       len(daySet),
			LessonsCompleted: lessons,
			Streak:           computeStreak(daySet, in.today),
		}
		if !lastActive.IsZero() {
			last := lastActive.UTC()
			student.LastActive = &last
		}
		stats = append(stats, studentDays{student: student, days: daySet})
	}

	ranked := make([]models.ActiveStudent, 0, len(stats))
	for _, s := range stats {
		ranked = append(ranked, s.student)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ActiveDays != ranked[j].ActiveDays {
			return ranked[i].ActiveDays > ranked[j].ActiveDays
		}
		return ranked[i].LessonsCompleted > ranked[j].LessonsCompleted
	})
	if len(ranked) > in.limit {
		ranked = ranked[:in.limit]
	}

	avgDays := 0.0
	if len(stats) > 0 {
		sum := 0
		for _, s := range stats {
			sum += s.student.ActiveDays
		}
		avgDays = round1(float64(sum) / float64(len(stats)))
	}

	trend := make([]models.TrendPoint, 0, len(in.window))
	for _, date := range in.window {
		count := 0
		for _, s := range stats {
			if _, ok := s.days[date]; ok {
				count++
			}
		}
		trend = append(trend, models.TrendPoint{Date: date, Count: count})
	}

	return ranked, avgDays, trend
}

// computeStreak counts consecutive active days walking backward from today,
// or from yesterday when today has no record yet. Anything older yields 0.
func computeStreak(days map[string]struct{}, today time.Time) int {
	anchor := today
	if _, ok := days[dayKey(anchor)]; !ok {
		anchor = today.AddDate(0, 0, -1)
		if _, ok := days[dayKey(anchor)]; !ok {
			return 0
		}
	}

	streak := 0
	for d := anchor; ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[dayKey(d)]; !ok {
			break
		}
		streak++
	}
	return streak
}
