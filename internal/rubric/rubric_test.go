package rubric

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// sampleRubric has one 10-point criterion and one criterion split 3 + 2.
func sampleRubric() model.Rubric {
	return model.Rubric{
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
}

func leafSum(r model.Rubric) float64 {
	sum := 0.0
	for _, l := range Leaves(r) {
		sum += l.Cap
	}
	return sum
}

func TestTotalPoints(t *testing.T) {
	r := sampleRubric()
	Recompute(&r)
	if r.TotalPoints != 15 {
		t.Fatalf("TotalPoints = %v, want 15", r.TotalPoints)
	}
	if r.Criteria[1].Points != 5 {
		t.Errorf("derived criterion points = %v, want 5", r.Criteria[1].Points)
	}
}

func TestMutationsKeepTotalInSync(t *testing.T) {
	r := sampleRubric()
	Recompute(&r)

	steps := []struct {
		name string
		op   func() error
		want float64
	}{
		{"set leaf criterion", func() error { return SetCriterionPoints(&r, "c1", 8) }, 13},
		{"set sub-criterion", func() error { return SetSubCriterionPoints(&r, "c2", "s1", 4) }, 14},
		{"add criterion", func() error { AddCriterion(&r, "Presentation", 6); return nil }, 20},
		{"add sub-criterion", func() error { _, err := AddSubCriterion(&r, "c2", "Sources"); return err }, 22},
		{"remove sub-criterion", func() error { return RemoveSubCriterion(&r, "c2", "s2") }, 20},
		{"remove criterion", func() error { return RemoveCriterion(&r, "c1") }, 12},
	}
	for _, st := range steps {
		if err := st.op(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if r.TotalPoints != st.want {
			t.Errorf("%s: TotalPoints = %v, want %v", st.name, r.TotalPoints, st.want)
		}
		if r.TotalPoints != leafSum(r) {
			t.Errorf("%s: TotalPoints %v != leaf sum %v", st.name, r.TotalPoints, leafSum(r))
		}
	}
}

func TestAddSubCriterionDefaultCap(t *testing.T) {
	tests := []struct {
		name      string
		parentCap float64
		want      float64
	}{
		{"large parent", 10, 2},
		{"small parent", 3, 1.5},
		{"zero parent", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := model.Rubric{Name: "R"}
			cid := AddCriterion(&r, "C", tt.parentCap)
			sid, err := AddSubCriterion(&r, cid, "S")
			if err != nil {
				t.Fatalf("AddSubCriterion: %v", err)
			}
			got := r.Criteria[0].SubCriteria[0]
			if got.ID != sid {
				t.Errorf("returned id %q, stored %q", sid, got.ID)
			}
			if got.Points != tt.want {
				t.Errorf("default cap = %v, want %v", got.Points, tt.want)
			}
			if r.TotalPoints != tt.want {
				t.Errorf("TotalPoints = %v, want %v", r.TotalPoints, tt.want)
			}
		})
	}
}

func TestSetCriterionPointsWithSubCriteria(t *testing.T) {
	r := sampleRubric()
	err := SetCriterionPoints(&r, "c2", 9)
	if !errors.Is(err, ErrHasSubCriteria) {
		t.Fatalf("expected ErrHasSubCriteria, got %v", err)
	}
	err = SetCriterionPoints(&r, "missing", 1)
	if !errors.Is(err, ErrUnknownCriterion) {
		t.Fatalf("expected ErrUnknownCriterion, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleRubric()); err != nil {
		t.Fatalf("valid rubric rejected: %v", err)
	}

	t.Run("no criteria", func(t *testing.T) {
		err := Validate(model.Rubric{ID: "r", Name: "Empty"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(verr.Fields) != 1 || verr.Fields[0].Path != "criteria" {
			t.Fatalf("unexpected fields: %+v", verr.Fields)
		}
		if verr.Fields[0].NodeID != "r" {
			t.Errorf("NodeID = %q, want rubric id", verr.Fields[0].NodeID)
		}
	})

	t.Run("all violations at once", func(t *testing.T) {
		r := sampleRubric()
		r.Name = "  "
		r.Criteria[0].Name = ""
		r.Criteria[1].SubCriteria[1].Name = ""

		err := Validate(r)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		want := map[string]string{
			"name":                            "r1",
			"criteria[0].name":                "c1",
			"criteria[1].subCriteria[1].name": "s2",
		}
		if len(verr.Fields) != len(want) {
			t.Fatalf("expected %d violations, got %+v", len(want), verr.Fields)
		}
		for _, f := range verr.Fields {
			id, ok := want[f.Path]
			if !ok {
				t.Errorf("unexpected path %q", f.Path)
				continue
			}
			if f.NodeID != id {
				t.Errorf("%s: NodeID = %q, want %q", f.Path, f.NodeID, id)
			}
			if f.Message != "this field is required" {
				t.Errorf("%s: message = %q", f.Path, f.Message)
			}
		}
	})
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRepository(s)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rb := sampleRubric()
	rb.ID = ""
	rb.Criteria[0].ID = ""
	saved, err := repo.Save(ctx, rb)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.Criteria[0].ID == "" {
		t.Fatal("expected ids to be assigned")
	}
	if saved.TotalPoints != 15 {
		t.Errorf("TotalPoints = %v, want 15", saved.TotalPoints)
	}
	if saved.PassingThreshold != 7.5 {
		t.Errorf("PassingThreshold = %v, want 7.5", saved.PassingThreshold)
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Lab report" {
		t.Errorf("Name = %q", got.Name)
	}

	// Update in place.
	got.Name = "Lab report v2"
	if _, err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 || all[0].Name != "Lab report v2" {
		t.Errorf("unexpected rubrics after update: %+v", all)
	}

	// Invalid rubrics are not stored.
	if _, err := repo.Save(ctx, model.Rubric{Name: "Bad"}); err == nil {
		t.Error("expected validation error")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, saved.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
