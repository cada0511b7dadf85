package evaluation

import (
	"slices"

	"github.com/pavelanni/classbook/internal/model"
)

// Progress returns the percentage of graded copies, 0 for no copies.
func Progress(ev model.Evaluation) float64 {
	if len(ev.Copies) == 0 {
		return 0
	}
	return float64(gradedCount(ev)) / float64(len(ev.Copies)) * 100
}

func gradedCount(ev model.Evaluation) int {
	n := 0
	for _, c := range ev.Copies {
		if c.Graded() {
			n++
		}
	}
	return n
}

// Classification partitions evaluations by progress.
type Classification struct {
	Pending    []model.Evaluation `json:"pending"`
	InProgress []model.Evaluation `json:"inProgress"`
	Completed  []model.Evaluation `json:"completed"`
}

// Classify puts every evaluation in exactly one bucket: pending at 0%,
// completed at 100%, in progress otherwise.
func Classify(evs []model.Evaluation) Classification {
	var c Classification
	for _, ev := range evs {
		switch p := Progress(ev); {
		case p == 0:
			c.Pending = append(c.Pending, ev)
		case p >= 100:
			c.Completed = append(c.Completed, ev)
		default:
			c.InProgress = append(c.InProgress, ev)
		}
	}
	return c
}

// Stats summarizes the graded copies of an evaluation. Every value is 0
// when nothing is graded.
type Stats struct {
	Average        float64 `json:"average"`
	Median         float64 `json:"median"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	CompletionRate float64 `json:"completionRate"`
	Graded         int     `json:"graded"`
	Total          int     `json:"total"`
}

// Compute returns the statistics of ev.
func Compute(ev model.Evaluation) Stats {
	grades := make([]float64, 0, len(ev.Copies))
	for _, c := range ev.Copies {
		if c.Graded() {
			grades = append(grades, *c.Grade)
		}
	}
	st := Stats{
		Graded:         len(grades),
		Total:          len(ev.Copies),
		CompletionRate: Progress(ev),
	}
	if len(grades) == 0 {
		return st
	}
	slices.Sort(grades)

	sum := 0.0
	for _, g := range grades {
		sum += g
	}
	st.Average = sum / float64(len(grades))
	st.Min = grades[0]
	st.Max = grades[len(grades)-1]
	mid := len(grades) / 2
	if len(grades)%2 == 0 {
		st.Median = (grades[mid-1] + grades[mid]) / 2
	} else {
		st.Median = grades[mid]
	}
	return st
}

// ScaledGrade converts grade out of maxPoints to a grade out of scale.
func ScaledGrade(grade, maxPoints, scale float64) float64 {
	if maxPoints <= 0 {
		return 0
	}
	return grade / maxPoints * scale
}

// StudentAverage returns the coefficient-weighted average out of 20 of a
// student's graded copies. ok is false when the student has none.
func StudentAverage(evs []model.Evaluation, studentID string) (avg float64, ok bool) {
	var sum, weights float64
	for _, ev := range evs {
		if ev.MaxPoints <= 0 {
			continue
		}
		coef := ev.Coefficient
		if coef <= 0 {
			coef = 1
		}
		for _, c := range ev.Copies {
			if c.StudentID != studentID || !c.Graded() {
				continue
			}
			sum += ScaledGrade(*c.Grade, ev.MaxPoints, 20) * coef
			weights += coef
		}
	}
	if weights == 0 {
		return 0, false
	}
	return sum / weights, true
}
