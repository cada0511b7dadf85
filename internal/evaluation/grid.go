package evaluation

import (
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/rubric"
)

// Grid lays out an evaluation for export: one column per rubric leaf and one
// row per student, roster order first, then copies of students no longer
// enrolled.
func Grid(ev model.Evaluation, rb model.Rubric, students []model.Student) model.GridExport {
	leaves := rubric.Leaves(rb)
	g := model.GridExport{
		EvaluationID: ev.ID,
		Name:         ev.Name,
		Subject:      ev.Subject,
		Group:        ev.Group,
		Date:         ev.Date,
		MaxPoints:    ev.MaxPoints,
		Columns:      make([]model.GridColumn, 0, len(leaves)),
	}
	for _, l := range leaves {
		id := l.CriterionID
		if l.SubCriterionID != "" {
			id = l.SubCriterionID
		}
		g.Columns = append(g.Columns, model.GridColumn{ID: id, Label: l.Label, MaxPoints: l.Cap})
	}

	copies := make(map[string]model.Copy, len(ev.Copies))
	for _, c := range ev.Copies {
		copies[c.StudentID] = c
	}
	seen := make(map[string]bool, len(students))
	for _, st := range students {
		seen[st.ID] = true
		g.Rows = append(g.Rows, gridRow(ev, leaves, st, copies[st.ID]))
	}
	for _, c := range ev.Copies {
		if !seen[c.StudentID] {
			g.Rows = append(g.Rows, gridRow(ev, leaves, model.Student{ID: c.StudentID}, c))
		}
	}
	return g
}

func gridRow(ev model.Evaluation, leaves []rubric.Leaf, st model.Student, c model.Copy) model.GridRow {
	row := model.GridRow{
		StudentID: st.ID,
		LastName:  st.LastName,
		FirstName: st.FirstName,
		Values:    make([]*float64, len(leaves)),
		Comments:  c.Comments,
	}
	if !c.Graded() {
		return row
	}
	for i, l := range leaves {
		row.Values[i] = leafPoints(c.Details, l)
	}
	total := *c.Grade
	out20 := ScaledGrade(total, ev.MaxPoints, 20)
	row.Total = &total
	row.OutOf20 = &out20
	return row
}

func leafPoints(details []model.CriterionDetail, l rubric.Leaf) *float64 {
	for _, d := range details {
		if d.ID != l.CriterionID {
			continue
		}
		if l.SubCriterionID == "" {
			p := d.Points
			return &p
		}
		for _, s := range d.SubCriteria {
			if s.ID == l.SubCriterionID {
				p := s.Points
				return &p
			}
		}
	}
	return nil
}
