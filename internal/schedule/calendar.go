// Package schedule resolves the weekly class template against holidays,
// alternating weeks and internship periods. Resolution never fails: missing
// or malformed data resolves to no classes.
package schedule

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/pavelanni/classbook/internal/model"
)

const (
	dayStart = "00:00"
	dayEnd   = "23:59"
	// ScheduleForWeek covers Monday to Friday.
	schoolDays = 5
)

// Calendar holds everything needed to resolve classes for a date.
type Calendar struct {
	Regular     model.RegularSchedule    `json:"regularSchedule"`
	Holidays    []model.Holiday          `json:"holidays"`
	Internships []model.InternshipPeriod `json:"internshipPeriods"`
	Alternation model.AlternatingWeeks   `json:"alternatingWeeks"`
}

// DayOffKind says why a day has no classes.
type DayOffKind string

const (
	DayOffHoliday    DayOffKind = "holiday"
	DayOffInternship DayOffKind = "internship"
)

// DayOff describes why no classes appear on a date.
type DayOff struct {
	Kind DayOffKind `json:"kind"`
	// Name is the holiday name.
	Name string `json:"name,omitempty"`
	// Groups lists the groups on internship.
	Groups []string `json:"groups,omitempty"`
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	return t, err == nil
}

// within reports whether d lies in [start, end], inclusive.
func within(d time.Time, start, end string) bool {
	from, ok := parseDate(start)
	if !ok {
		return false
	}
	to, ok := parseDate(end)
	if !ok {
		return false
	}
	return !d.Before(from) && !d.After(to)
}

func (c Calendar) dayClasses(d time.Time) []model.ScheduleClass {
	name := d.Weekday().String()
	for _, day := range c.Regular.Days {
		if strings.EqualFold(strings.TrimSpace(day.Day), name) {
			return day.Classes
		}
	}
	return nil
}

func (c Calendar) holidayOn(d time.Time) (model.Holiday, bool) {
	for _, h := range c.Holidays {
		if h.SingleDay() {
			if hd, ok := parseDate(h.Date); ok && hd.Equal(d) {
				return h, true
			}
			continue
		}
		if within(d, h.StartDate, h.EndDate) {
			return h, true
		}
	}
	return model.Holiday{}, false
}

func (c Calendar) onInternship(group string, d time.Time) bool {
	if group == "" {
		return false
	}
	for _, p := range c.Internships {
		if p.Group == group && within(d, p.StartDate, p.EndDate) {
			return true
		}
	}
	return false
}

// WeekType returns the parity of the week containing d relative to the
// alternation reference. ok is false when no valid reference is configured.
func (c Calendar) WeekType(d time.Time) (wt model.WeekType, ok bool) {
	ref, ok := parseDate(c.Alternation.StartReference)
	if !ok {
		return "", false
	}
	days := d.Sub(ref).Hours() / 24
	diffWeeks := int(math.Floor(days / 7))
	odd := (diffWeeks%2 == 0) == (c.Alternation.ReferenceType == model.WeekOdd)
	if odd {
		return model.WeekOdd, true
	}
	return model.WeekEven, true
}

// ShouldDisplayClass reports whether a template class takes place on date.
// Holidays win over everything, then week parity, then internships.
func (c Calendar) ShouldDisplayClass(class model.ScheduleClass, date string) bool {
	d, ok := parseDate(date)
	if !ok {
		return false
	}
	return c.shouldDisplay(class, d)
}

func (c Calendar) shouldDisplay(class model.ScheduleClass, d time.Time) bool {
	if _, ok := c.holidayOn(d); ok {
		return false
	}
	if class.Alternating {
		// Without a reference week the class is shown every week.
		if wt, ok := c.WeekType(d); ok && class.WeekType != wt {
			return false
		}
	}
	return !c.onInternship(class.Group, d)
}

// ClassesForDate returns the classes of date sorted by start time, with the
// single-day events of that date added as full entries.
func (c Calendar) ClassesForDate(date string) []model.ScheduleClass {
	d, ok := parseDate(date)
	if !ok {
		return nil
	}
	var out []model.ScheduleClass
	for _, class := range c.dayClasses(d) {
		if c.shouldDisplay(class, d) {
			out = append(out, class)
		}
	}
	for _, h := range c.Holidays {
		if !h.SingleDay() {
			continue
		}
		if hd, ok := parseDate(h.Date); ok && hd.Equal(d) {
			out = append(out, eventClass(h))
		}
	}
	slices.SortStableFunc(out, compareStart)
	return out
}

func eventClass(h model.Holiday) model.ScheduleClass {
	ev := model.ScheduleClass{
		Subject:   h.Name,
		Group:     h.Group,
		Room:      h.Room,
		StartTime: h.StartTime,
		EndTime:   h.EndTime,
		Note:      h.Note,
		Event:     true,
	}
	if ev.StartTime == "" {
		ev.StartTime = dayStart
	}
	if ev.EndTime == "" {
		ev.EndTime = dayEnd
	}
	return ev
}

// compareStart orders by start time. Unparsable times compare equal.
func compareStart(a, b model.ScheduleClass) int {
	ta, errA := time.Parse("15:04", strings.TrimSpace(a.StartTime))
	tb, errB := time.Parse("15:04", strings.TrimSpace(b.StartTime))
	if errA != nil || errB != nil {
		return 0
	}
	return ta.Compare(tb)
}

// HolidayInfoForDate explains an empty day. Holidays are reported first; an
// internship is reported only when every group scheduled that day is away.
func (c Calendar) HolidayInfoForDate(date string) (DayOff, bool) {
	d, ok := parseDate(date)
	if !ok {
		return DayOff{}, false
	}
	if h, ok := c.holidayOn(d); ok {
		return DayOff{Kind: DayOffHoliday, Name: h.Name}, true
	}

	var groups []string
	for _, class := range c.dayClasses(d) {
		if class.Group != "" && !slices.Contains(groups, class.Group) {
			groups = append(groups, class.Group)
		}
	}
	if len(groups) == 0 {
		return DayOff{}, false
	}
	for _, g := range groups {
		if !c.onInternship(g, d) {
			return DayOff{}, false
		}
	}
	return DayOff{Kind: DayOffInternship, Groups: groups}, true
}

// ScheduleForWeek resolves the five school days starting at weekStart,
// keyed by date.
func (c Calendar) ScheduleForWeek(weekStart string) map[string][]model.ScheduleClass {
	start, ok := parseDate(weekStart)
	if !ok {
		return map[string][]model.ScheduleClass{}
	}
	week := make(map[string][]model.ScheduleClass, schoolDays)
	for i := range schoolDays {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		week[date] = c.ClassesForDate(date)
	}
	return week
}

// WeekStart returns the Monday of the week containing date.
func WeekStart(date string) (string, bool) {
	d, ok := parseDate(date)
	if !ok {
		return "", false
	}
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset).Format(time.DateOnly), true
}
