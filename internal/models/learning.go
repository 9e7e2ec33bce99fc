package models

import "time"

// Enrollment statuses as stored on enrollment documents. Only approved
// enrollments feed the analytics pipeline.
const (
	EnrollmentStatusPending  = "pending"
	EnrollmentStatusApproved = "approved"
	EnrollmentStatusRejected = "rejected"
)

// Lesson kinds. Header rows structure the course outline and never count as
// consumable lessons.
const (
	LessonKindNormal = "normal"
	LessonKindHeader = "header"
)

// Enrollment grants one student access to one course.
type Enrollment struct {
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	Status       string `json:"status"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// Lesson is one entry of a course's effective lesson sequence.
type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Order     float64   `json:"order"`
	HasOrder  bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Course holds a course title and its effective lesson sequence: headers and
// hidden lessons removed, ordered by explicit order (missing last) then
// creation time. An empty Lessons slice is meaningful and distinct from the
// course being missing entirely.
type Course struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// LessonTitle resolves a lesson ID within the effective sequence, reporting
// whether the ID belongs to it.
func (c *Course) LessonTitle(lessonID string) (string, bool) {
	for _, lesson := range c.Lessons {
		if lesson.ID == lessonID {
			return lesson.Title, true
		}
	}
	return "", false
}

// ProgressRecord is one student's completion state for one course. A missing
// progress document is represented by an empty CompletedLessonIDs, never by
// the record being absent from the pipeline.
type ProgressRecord struct {
	StudentID          string   `json:"student_id"`
	CourseID           string   `json:"course_id"`
	CompletedLessonIDs []string `json:"completed_lesson_ids"`
}

// DayActivity is one day's learning activity for a student, keyed by the
// UTC day string YYYY-MM-DD.
type DayActivity struct {
	Date             string `json:"date"`
	LessonsCompleted int    `json:"lessons_completed"`
}

// CourseCompletion summarises per-course progress across enrolled students.
type CourseCompletion struct {
	CourseID          string  `json:"course_id"`
	Title             string  `json:"title"`
	TotalLessons      int     `json:"total_lessons"`
	TotalStudents     int     `json:"total_students"`
	CompletedStudents int     `json:"completed_students"`
	AvgProgress       float64 `json:"avg_progress"`
}

// EngagingLesson ranks a lesson by how many students completed it.
type EngagingLesson struct {
	LessonID        string `json:"lesson_id"`
	Title           string `json:"title"`
	CourseID        string `json:"course_id"`
	CourseTitle     string `json:"course_title"`
	CompletionCount int    `json:"completion_count"`
}

// DropOffPoint marks the steepest decline in student reach between two
// consecutive lessons of a course. LessonIndex is the 1-based position of
// the lesson where students stopped, never below 2 in practice since the
// scan compares consecutive lesson pairs.
type DropOffPoint struct {
	CourseID            string `json:"course_id"`
	CourseTitle         string `json:"course_title"`
	LessonTitle         string `json:"lesson_title"`
	LessonIndex         int    `json:"lesson_index"`
	TotalLessons        int    `json:"total_lessons"`
	StudentsReachedPrev int    `json:"students_reached_prev"`
	StudentsReachedHere int    `json:"students_reached_here"`
	DropOffPercent      int    `json:"drop_off_percent"`
}

// ActiveStudent summarises one student's activity inside the trailing window.
type ActiveStudent struct {
	StudentID        string     `json:"student_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	ActiveDays       int        `json:"active_days"`
	LessonsCompleted int        `json:"lessons_completed"`
	LastActive       *time.Time `json:"last_active"`
	Streak           int        `json:"streak"`
}

// TrendPoint is one day of the active-student trend, counted over the
// sampled student population only.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LearningStatsReport is the full analytics payload handed to the dashboard.
type LearningStatsReport struct {
	ReportID              string             `json:"report_id"`
	GeneratedAt           time.Time          `json:"generated_at"`
	OverallCompletionRate float64            `json:"overall_completion_rate"`
	CourseCompletionRates []CourseCompletion `json:"course_completion_rates"`
	AverageActiveDays     float64            `json:"average_active_days"`
	ActiveStudentsTrend   []TrendPoint       `json:"active_students_trend"`
	MostEngagingLessons   []EngagingLesson   `json:"most_engaging_lessons"`
	DropOffPoints         []DropOffPoint     `json:"drop_off_points"`
	TopActiveStudents     []ActiveStudent    `json:"top_active_students"`
}
