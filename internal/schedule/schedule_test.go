package schedule

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

func testCalendar() Calendar {
	return Calendar{
		Regular: model.RegularSchedule{Days: []model.ScheduleDay{
			{Day: "Monday", Classes: []model.ScheduleClass{
				{Subject: "Math", Group: "A", Room: "101", StartTime: "10:00", EndTime: "12:00"},
				{Subject: "Physics", Group: "B", Room: "Lab", StartTime: "08:00", EndTime: "10:00", Alternating: true, WeekType: model.WeekOdd},
				{Subject: "Chemistry", Group: "B", Room: "Lab", StartTime: "08:00", EndTime: "10:00", Alternating: true, WeekType: model.WeekEven},
			}},
			{Day: "wednesday", Classes: []model.ScheduleClass{
				{Subject: "Math", Group: "A", StartTime: "14:00", EndTime: "16:00"},
				{Subject: "Math", Group: "A", StartTime: "09:00", EndTime: "11:00"},
			}},
			{Day: "Thursday", Classes: []model.ScheduleClass{
				{Subject: "Math", Group: "A", StartTime: "09:00", EndTime: "11:00"},
				{Subject: "History", Group: "B", StartTime: "13:00", EndTime: "15:00"},
			}},
		}},
		Alternation: model.AlternatingWeeks{StartReference: "2025-03-10", ReferenceType: model.WeekOdd},
	}
}

func subjects(classes []model.ScheduleClass) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Subject
	}
	return out
}

func TestAlternatingWeeks(t *testing.T) {
	cal := testCalendar()
	tests := []struct {
		date string
		want []string
	}{
		{"2025-03-10", []string{"Physics", "Math"}},
		{"2025-03-17", []string{"Chemistry", "Math"}},
		{"2025-03-24", []string{"Physics", "Math"}},
		{"2025-03-03", []string{"Chemistry", "Math"}},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got := subjects(cal.ClassesForDate(tt.date))
			if !slices.Equal(got, tt.want) {
				t.Errorf("ClassesForDate(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}

	// An even reference flips the parity.
	cal.Alternation.ReferenceType = model.WeekEven
	if got := subjects(cal.ClassesForDate("2025-03-10")); !slices.Equal(got, []string{"Chemistry", "Math"}) {
		t.Errorf("even reference: got %v", got)
	}

	// Without a reference, alternating classes show every week.
	cal.Alternation = model.AlternatingWeeks{}
	if got := cal.ClassesForDate("2025-03-10"); len(got) != 3 {
		t.Errorf("no reference: got %v", subjects(got))
	}
}

func TestHolidayPrecedence(t *testing.T) {
	cal := testCalendar()
	cal.Holidays = []model.Holiday{{Name: "Spring break", StartDate: "2025-03-08", EndDate: "2025-03-10"}}

	physics := cal.Regular.Days[0].Classes[1]
	if cal.ShouldDisplayClass(physics, "2025-03-10") {
		t.Error("class shown during a holiday")
	}
	if got := cal.ClassesForDate("2025-03-10"); len(got) != 0 {
		t.Errorf("expected no classes, got %v", subjects(got))
	}
	info, ok := cal.HolidayInfoForDate("2025-03-10")
	if !ok || info.Kind != DayOffHoliday || info.Name != "Spring break" {
		t.Errorf("HolidayInfoForDate = %+v, %v", info, ok)
	}
	if _, ok := cal.HolidayInfoForDate("2025-03-11"); ok {
		t.Error("unexpected day off after the holiday")
	}
}

func TestSingleDayEvent(t *testing.T) {
	cal := testCalendar()
	cal.Holidays = []model.Holiday{
		{Name: "Open day", Date: "2025-03-12"},
		{Name: "Staff meeting", Date: "2025-03-12", StartTime: "17:00", EndTime: "18:00", Room: "Hall"},
	}
	got := cal.ClassesForDate("2025-03-12")
	if !slices.Equal(subjects(got), []string{"Open day", "Staff meeting"}) {
		t.Fatalf("ClassesForDate = %v", subjects(got))
	}
	if !got[0].Event || got[0].StartTime != "00:00" || got[0].EndTime != "23:59" {
		t.Errorf("unexpected full-day event: %+v", got[0])
	}
	if got[1].Room != "Hall" || got[1].StartTime != "17:00" {
		t.Errorf("unexpected timed event: %+v", got[1])
	}
}

func TestInternships(t *testing.T) {
	cal := testCalendar()
	cal.Internships = []model.InternshipPeriod{{Group: "B", StartDate: "2025-03-13", EndDate: "2025-03-20"}}

	// Only group B's class is dropped; the day is not reported as off.
	got := cal.ClassesForDate("2025-03-13")
	if !slices.Equal(subjects(got), []string{"Math"}) {
		t.Errorf("ClassesForDate = %v, want [Math]", subjects(got))
	}
	if _, ok := cal.HolidayInfoForDate("2025-03-13"); ok {
		t.Error("partial internship reported as a day off")
	}

	// On Monday 2025-03-17 only B would have had its morning class, but A
	// still has Math.
	if _, ok := cal.HolidayInfoForDate("2025-03-17"); ok {
		t.Error("day off reported while group A has class")
	}

	cal.Internships = append(cal.Internships, model.InternshipPeriod{Group: "A", StartDate: "2025-03-13", EndDate: "2025-03-13"})
	info, ok := cal.HolidayInfoForDate("2025-03-13")
	if !ok || info.Kind != DayOffInternship || !slices.Equal(info.Groups, []string{"A", "B"}) {
		t.Errorf("HolidayInfoForDate = %+v, %v", info, ok)
	}
	if got := cal.ClassesForDate("2025-03-13"); len(got) != 0 {
		t.Errorf("expected no classes, got %v", subjects(got))
	}
}

func TestSorting(t *testing.T) {
	cal := testCalendar()
	got := cal.ClassesForDate("2025-03-12")
	if len(got) != 2 || got[0].StartTime != "09:00" || got[1].StartTime != "14:00" {
		t.Errorf("classes not sorted by start time: %+v", got)
	}

	classes := []model.ScheduleClass{
		{Subject: "X", StartTime: "soon"},
		{Subject: "Y", StartTime: "09:00"},
		{Subject: "Z", StartTime: "08:00"},
	}
	slices.SortStableFunc(classes, compareStart)
	names := subjects(classes)
	if len(names) != 3 || slices.Index(names, "Z") > slices.Index(names, "Y") {
		t.Errorf("unexpected order with a malformed time: %v", names)
	}
}

func TestMalformedInput(t *testing.T) {
	cal := testCalendar()
	if got := cal.ClassesForDate("not a date"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := (Calendar{}).ClassesForDate("2025-03-10"); len(got) != 0 {
		t.Errorf("empty calendar returned %v", got)
	}
	cal.Holidays = []model.Holiday{{Name: "Broken", StartDate: "2025-13-01", EndDate: "later"}}
	if got := cal.ClassesForDate("2025-03-12"); len(got) != 2 {
		t.Errorf("malformed holiday suppressed classes: %v", subjects(got))
	}
}

func TestScheduleForWeek(t *testing.T) {
	week := testCalendar().ScheduleForWeek("2025-03-10")
	if len(week) != 5 {
		t.Fatalf("expected 5 days, got %d", len(week))
	}
	if len(week["2025-03-10"]) != 2 || len(week["2025-03-11"]) != 0 || len(week["2025-03-14"]) != 0 {
		t.Errorf("unexpected week: %v", week)
	}
	if _, ok := week["2025-03-15"]; ok {
		t.Error("week includes Saturday")
	}

	start, ok := WeekStart("2025-03-13")
	if !ok || start != "2025-03-10" {
		t.Errorf("WeekStart = %q, %v", start, ok)
	}
	if start, _ := WeekStart("2025-03-16"); start != "2025-03-10" {
		t.Errorf("WeekStart(Sunday) = %q", start)
	}
}

// flakyBackend serves a corrupt value for key the first corrupt reads.
type flakyBackend struct {
	key     string
	corrupt int
	values  map[string][]byte
}

func (b *flakyBackend) Records(context.Context, string) ([]store.Record, error) { return nil, nil }
func (b *flakyBackend) ReplaceRecords(context.Context, string, []store.Record) error {
	return nil
}
func (b *flakyBackend) PutRecord(context.Context, string, store.Record) error { return nil }
func (b *flakyBackend) Value(_ context.Context, key string) ([]byte, error) {
	if key == b.key && b.corrupt > 0 {
		b.corrupt--
		return []byte("{not json"), nil
	}
	return b.values[key], nil
}
func (b *flakyBackend) SetValue(_ context.Context, key string, data []byte) error {
	b.values[key] = data
	return nil
}
func (b *flakyBackend) Collections(context.Context) ([]string, error) { return nil, nil }
func (b *flakyBackend) Keys(context.Context) ([]string, error)        { return nil, nil }
func (b *flakyBackend) Close() error                                  { return nil }

func TestLoad(t *testing.T) {
	ctx := context.Background()
	opts := LoadOptions{RetryDelay: time.Millisecond}

	t.Run("empty store", func(t *testing.T) {
		s := store.New(&flakyBackend{values: map[string][]byte{}}, 0)
		cal, err := Load(ctx, s, opts)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cal.ClassesForDate("2025-03-10")) != 0 {
			t.Error("expected no classes")
		}
	})

	t.Run("recovers on retry", func(t *testing.T) {
		b := &flakyBackend{key: model.KeyHolidays, corrupt: 1, values: map[string][]byte{}}
		s := store.New(b, 0)
		if err := Save(ctx, s, testCalendar()); err != nil {
			t.Fatalf("Save: %v", err)
		}
		cal, err := Load(ctx, s, opts)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got := cal.ClassesForDate("2025-03-10"); len(got) != 2 {
			t.Errorf("unexpected classes after reload: %v", subjects(got))
		}
	})

	t.Run("gives up after one retry", func(t *testing.T) {
		b := &flakyBackend{key: model.KeyHolidays, corrupt: 2, values: map[string][]byte{}}
		_, err := Load(ctx, store.New(b, 0), opts)
		var tle *TransientLoadError
		if !errors.As(err, &tle) || tle.Key != model.KeyHolidays {
			t.Fatalf("expected TransientLoadError for holidays, got %v", err)
		}
		if !errors.Is(err, store.ErrCorrupt) {
			t.Errorf("expected ErrCorrupt in chain, got %v", err)
		}
		if b.corrupt != 0 {
			t.Errorf("expected exactly two reads, %d corrupt reads left", b.corrupt)
		}
	})
}
