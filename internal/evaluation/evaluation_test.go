package evaluation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
	"github.com/pavelanni/classbook/internal/store"
)

func grade(v float64) *float64 { return &v }

// withGrades builds an evaluation with one copy per grade; nil is ungraded.
func withGrades(grades ...*float64) model.Evaluation {
	ev := model.Evaluation{ID: "ev", MaxPoints: 15}
	for i, g := range grades {
		ev.Copies = append(ev.Copies, model.Copy{StudentID: string(rune('a' + i)), Grade: g})
	}
	return ev
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name string
		ev   model.Evaluation
		want float64
	}{
		{"no copies", withGrades(), 0},
		{"none graded", withGrades(nil, nil), 0},
		{"half graded", withGrades(grade(3), nil), 50},
		{"all graded", withGrades(grade(3), grade(0)), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.ev); got != tt.want {
				t.Errorf("Progress = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	evs := []model.Evaluation{
		withGrades(),
		withGrades(nil),
		withGrades(grade(1), nil, nil),
		withGrades(grade(1)),
	}
	c := Classify(evs)
	if len(c.Pending) != 2 || len(c.InProgress) != 1 || len(c.Completed) != 1 {
		t.Fatalf("got %d/%d/%d, want 2/1/1", len(c.Pending), len(c.InProgress), len(c.Completed))
	}
	if len(c.Pending)+len(c.InProgress)+len(c.Completed) != len(evs) {
		t.Error("classification is not exhaustive")
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		ev   model.Evaluation
		want Stats
	}{
		{
			name: "nothing graded",
			ev:   withGrades(nil, nil),
			want: Stats{Total: 2},
		},
		{
			name: "odd count",
			ev:   withGrades(grade(18), grade(12), grade(15)),
			want: Stats{Average: 15, Median: 15, Min: 12, Max: 18, CompletionRate: 100, Graded: 3, Total: 3},
		},
		{
			name: "even count",
			ev:   withGrades(grade(20), grade(10), grade(16), grade(14)),
			want: Stats{Average: 15, Median: 15, Min: 10, Max: 20, CompletionRate: 100, Graded: 4, Total: 4},
		},
		{
			name: "ungraded copies ignored",
			ev:   withGrades(grade(12), nil, grade(15), grade(9)),
			want: Stats{Average: 12, Median: 12, Min: 9, Max: 15, CompletionRate: 75, Graded: 3, Total: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.ev); got != tt.want {
				t.Errorf("Compute = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStudentAverage(t *testing.T) {
	evs := []model.Evaluation{
		{MaxPoints: 10, Coefficient: 1, Copies: []model.Copy{{StudentID: "s1", Grade: grade(5)}}},
		{MaxPoints: 20, Coefficient: 3, Copies: []model.Copy{{StudentID: "s1", Grade: grade(18)}, {StudentID: "s2"}}},
	}
	avg, ok := StudentAverage(evs, "s1")
	if !ok || avg != 16 {
		t.Errorf("StudentAverage(s1) = %v, %v, want 16, true", avg, ok)
	}
	if _, ok := StudentAverage(evs, "s2"); ok {
		t.Error("expected no average for a student without grades")
	}
}

func labRubric() model.Rubric {
	r := model.Rubric{
		ID:   "r1",
		Name: "Lab report",
		Criteria: []model.Criterion{
			{ID: "c1", Name: "Method", Points: 10},
			{ID: "c2", Name: "Analysis", SubCriteria: []model.SubCriterion{
				{ID: "s1", Name: "Graphs", Points: 3},
				{ID: "s2", Name: "Conclusion", Points: 2},
			}},
		},
	}
	rubric.Recompute(&r)
	return r
}

func TestGrid(t *testing.T) {
	ev := model.Evaluation{
		ID: "ev", Name: "Lab 1", MaxPoints: 15,
		Copies: []model.Copy{
			{StudentID: "st1", Grade: grade(12), Comments: "ok", Details: []model.CriterionDetail{
				{ID: "c1", Points: 8},
				{ID: "c2", Points: 4, SubCriteria: []model.SubCriterionDetail{{ID: "s1", Points: 3}, {ID: "s2", Points: 1}}},
			}},
			{StudentID: "st2"},
			{StudentID: "gone", Grade: grade(0)},
		},
	}
	students := []model.Student{
		{ID: "st2", FirstName: "Bob", LastName: "Petit"},
		{ID: "st1", FirstName: "Alice", LastName: "Durand"},
	}
	g := Grid(ev, labRubric(), students)

	if len(g.Columns) != 3 || g.Columns[1].Label != "Analysis / Graphs" || g.Columns[2].MaxPoints != 2 {
		t.Fatalf("unexpected columns: %+v", g.Columns)
	}
	if len(g.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(g.Rows))
	}
	if g.Rows[0].StudentID != "st2" || g.Rows[0].Total != nil || g.Rows[0].Values[0] != nil {
		t.Errorf("ungraded row should be empty: %+v", g.Rows[0])
	}
	alice := g.Rows[1]
	if *alice.Values[0] != 8 || *alice.Values[1] != 3 || *alice.Values[2] != 1 {
		t.Errorf("unexpected values for st1")
	}
	if *alice.Total != 12 || *alice.OutOf20 != 16 || alice.LastName != "Durand" {
		t.Errorf("unexpected totals for st1: %+v", alice)
	}
	if g.Rows[2].StudentID != "gone" || g.Rows[2].Values[0] != nil {
		t.Errorf("unexpected row for unenrolled student: %+v", g.Rows[2])
	}
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rubrics := rubric.NewRepository(s)
	if _, err := rubrics.Save(ctx, labRubric()); err != nil {
		t.Fatalf("save rubric: %v", err)
	}
	r := roster.New(s)
	err = r.SaveGroup(ctx, model.Group{Name: "BTS1", Students: []model.Student{
		{ID: "st1", FirstName: "Alice", LastName: "Durand"},
		{ID: "st2", FirstName: "Bob", LastName: "Petit"},
	}})
	if err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}
	svc := NewService(NewRepository(s), rubrics, r)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, s
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ev, err := svc.Create(ctx, NewEvaluation{Name: "Lab 1", Group: "BTS1", RubricID: "r1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.MaxPoints != 15 || ev.Coefficient != 1 || ev.Date != "2025-03-10" {
		t.Errorf("unexpected evaluation: %+v", ev)
	}
	if len(ev.Copies) != 2 || ev.Copies[0].StudentID != "st1" || ev.Copies[0].Graded() {
		t.Errorf("unexpected copies: %+v", ev.Copies)
	}

	stored, err := svc.repo.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Name != "Lab 1" || len(stored.Copies) != 2 {
		t.Errorf("unexpected stored evaluation: %+v", stored)
	}

	grid, err := svc.Export(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(grid.Rows) != 2 || grid.Rows[1].LastName != "Petit" {
		t.Errorf("unexpected grid rows: %+v", grid.Rows)
	}
}

func TestCreateMissingReferences(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		ne   NewEvaluation
	}{
		{"missing rubric", NewEvaluation{Name: "X", Group: "BTS1", RubricID: "nope"}},
		{"missing group", NewEvaluation{Name: "X", Group: "nope", RubricID: "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.ne)
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
	evs, _ := svc.repo.List(ctx)
	if len(evs) != 0 {
		t.Errorf("expected nothing stored, got %d evaluations", len(evs))
	}
}
