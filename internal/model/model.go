package model

import "time"

// Collection names used by the store.
const (
	CollectionEvaluations    = "evaluations"
	CollectionRubrics        = "rubrics"
	CollectionStudents       = "students"
	CollectionTasks          = "tasks"
	CollectionTaskCategories = "taskCategories"
)

// Singleton keys used by the store.
const (
	KeyUser             = "user"
	KeyRegularSchedule  = "regularSchedule"
	KeyHolidays         = "holidays"
	KeyInternships      = "internshipPeriods"
	KeyAlternatingWeeks = "alternatingWeeks"
	// KeyImportedFiles maps imported file paths to their content hash.
	KeyImportedFiles = "importedFiles"
)

// Rubric is a scoring template. TotalPoints caches the sum of leaf caps.
type Rubric struct {
	ID               string      `json:"id"`
	Name             string      `json:"name" validate:"notblank"`
	EvaluationType   string      `json:"evaluationType"`
	TotalPoints      float64     `json:"totalPoints"`
	PassingThreshold float64     `json:"passingThreshold"`
	Criteria         []Criterion `json:"criteria" validate:"min=1,dive"`
}

// Criterion is a top-level rubric node. When SubCriteria is non-empty,
// Points caches their sum and is not an independent cap.
type Criterion struct {
	ID          string         `json:"id"`
	Name        string         `json:"name" validate:"notblank"`
	Points      float64        `json:"points"`
	SubCriteria []SubCriterion `json:"subCriteria,omitempty" validate:"dive"`
}

// HasSubCriteria reports whether the criterion's cap is derived.
func (c Criterion) HasSubCriteria() bool {
	return len(c.SubCriteria) > 0
}

// SubCriterion is a rubric leaf.
type SubCriterion struct {
	ID     string  `json:"id"`
	Name   string  `json:"name" validate:"notblank"`
	Points float64 `json:"points"`
}

// Evaluation is a graded assignment for one group. MaxPoints is captured
// from the rubric at creation time.
type Evaluation struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Subject     string  `json:"subject"`
	Group       string  `json:"group"`
	Date        string  `json:"date"`
	RubricID    string  `json:"rubricId"`
	MaxPoints   float64 `json:"maxPoints"`
	Coefficient float64 `json:"coefficient"`
	Copies      []Copy  `json:"copies"`
}

// Copy is one student's record within an evaluation. A nil Grade means ungraded.
type Copy struct {
	StudentID string            `json:"studentId"`
	Grade     *float64          `json:"grade"`
	Comments  string            `json:"comments"`
	Details   []CriterionDetail `json:"details"`
	GradedAt  *time.Time        `json:"gradedAt,omitempty"`
}

// Graded reports whether the copy carries a grade.
func (c Copy) Graded() bool {
	return c.Grade != nil
}

// CriterionDetail holds the points awarded for a criterion.
type CriterionDetail struct {
	ID          string               `json:"id"`
	Points      float64              `json:"points"`
	SubCriteria []SubCriterionDetail `json:"subCriteria,omitempty"`
}

// SubCriterionDetail holds the points awarded for a sub-criterion.
type SubCriterionDetail struct {
	ID     string  `json:"id"`
	Points float64 `json:"points"`
}

// Student is an enrolled student.
type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Group is a cohort of students; the students collection holds groups.
type Group struct {
	Name     string    `json:"name"`
	Students []Student `json:"students"`
}

// TaskCategory supplies the base XP for tasks of that kind.
type TaskCategory struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	BaseXP float64 `json:"baseXP"`
}

// UserProfile is the single user's gamification state.
type UserProfile struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	XP          int    `json:"xp"`
	NextLevelXP int    `json:"nextLevelXP"`
}

// WeekType is the parity of an alternating week.
type WeekType string

const (
	WeekOdd  WeekType = "odd"
	WeekEven WeekType = "even"
)

// ScheduleClass is one recurring class slot. Times are HH:MM.
type ScheduleClass struct {
	Subject     string   `json:"subject"`
	Group       string   `json:"group"`
	Room        string   `json:"room"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Alternating bool     `json:"alternating,omitempty"`
	WeekType    WeekType `json:"weekType,omitempty"`
	Note        string   `json:"note,omitempty"`
	// Event marks entries synthesized from single-day events.
	Event bool `json:"event,omitempty"`
}

// ScheduleDay lists the classes of one weekday in the regular template.
type ScheduleDay struct {
	Day     string          `json:"day"`
	Classes []ScheduleClass `json:"classes"`
}

// RegularSchedule is the recurring weekly template.
type RegularSchedule struct {
	Days []ScheduleDay `json:"days"`
}

// Holiday is either a single-day event (Date set) or a date range
// (StartDate and EndDate set). Dates are YYYY-MM-DD.
type Holiday struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Date      string `json:"date,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Group     string `json:"group,omitempty"`
	Room      string `json:"room,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Note      string `json:"note,omitempty"`
}

// SingleDay reports whether the holiday is a single-day event.
func (h Holiday) SingleDay() bool {
	return h.Date != ""
}

// InternshipPeriod suppresses regular classes for Group during the interval.
type InternshipPeriod struct {
	Group          string `json:"group"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	VisitRequired  bool   `json:"visitRequired"`
	VisitScheduled bool   `json:"visitScheduled"`
	ReportDeadline string `json:"reportDeadline,omitempty"`
}

// AlternatingWeeks pins week parity to a reference date.
type AlternatingWeeks struct {
	StartReference string   `json:"startReference"`
	ReferenceType  WeekType `json:"referenceType"`
}
