// Package rubric manipulates rubric scoring trees. Every mutation keeps the
// derived caps (criterion points with sub-criteria, rubric total) in sync.
package rubric

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavelanni/classbook/internal/model"
)

var (
	// ErrUnknownCriterion is returned for a criterion or sub-criterion id
	// absent from the tree.
	ErrUnknownCriterion = errors.New("unknown criterion")
	// ErrHasSubCriteria is returned when setting points on a criterion whose
	// points are the sum of its sub-criteria.
	ErrHasSubCriteria = errors.New("criterion points are derived from its sub-criteria")
)

// Default sub-criterion cap is min(defaultSubCap, parentCap/2).
const defaultSubCap = 2

// TotalPoints sums the leaf caps: sub-criteria when present, else the criterion.
func TotalPoints(r model.Rubric) float64 {
	total := 0.0
	for _, c := range r.Criteria {
		total += CriterionCap(c)
	}
	return total
}

// CriterionCap returns a criterion's effective cap.
func CriterionCap(c model.Criterion) float64 {
	if !c.HasSubCriteria() {
		return c.Points
	}
	sum := 0.0
	for _, s := range c.SubCriteria {
		sum += s.Points
	}
	return sum
}

// Recompute refreshes every derived cap and the rubric total.
func Recompute(r *model.Rubric) {
	for i := range r.Criteria {
		r.Criteria[i].Points = CriterionCap(r.Criteria[i])
	}
	r.TotalPoints = TotalPoints(*r)
}

// AssignIDs gives every node without an id a fresh one.
func AssignIDs(r *model.Rubric) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for i := range r.Criteria {
		c := &r.Criteria[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		for j := range c.SubCriteria {
			if c.SubCriteria[j].ID == "" {
				c.SubCriteria[j].ID = uuid.NewString()
			}
		}
	}
}

func findCriterion(r *model.Rubric, id string) (*model.Criterion, error) {
	for i := range r.Criteria {
		if r.Criteria[i].ID == id {
			return &r.Criteria[i], nil
		}
	}
	return nil, fmt.Errorf("criterion %q: %w", id, ErrUnknownCriterion)
}

func findSub(c *model.Criterion, id string) (*model.SubCriterion, error) {
	for i := range c.SubCriteria {
		if c.SubCriteria[i].ID == id {
			return &c.SubCriteria[i], nil
		}
	}
	return nil, fmt.Errorf("sub-criterion %q of %q: %w", id, c.ID, ErrUnknownCriterion)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// AddCriterion appends a criterion and returns its id.
func AddCriterion(r *model.Rubric, name string, points float64) string {
	id := uuid.NewString()
	r.Criteria = append(r.Criteria, model.Criterion{ID: id, Name: name, Points: nonNegative(points)})
	Recompute(r)
	return id
}

// AddSubCriterion appends a sub-criterion whose cap defaults to
// min(2, parentCap/2). The parent cap becomes the sum of its sub-criteria.
func AddSubCriterion(r *model.Rubric, criterionID, name string) (string, error) {
	c, err := findCriterion(r, criterionID)
	if err != nil {
		return "", err
	}
	subCap := min(defaultSubCap, CriterionCap(*c)/2)
	id := uuid.NewString()
	c.SubCriteria = append(c.SubCriteria, model.SubCriterion{ID: id, Name: name, Points: subCap})
	Recompute(r)
	return id, nil
}

// SetCriterionPoints sets a leaf criterion's cap.
func SetCriterionPoints(r *model.Rubric, criterionID string, points float64) error {
	c, err := findCriterion(r, criterionID)
	if err != nil {
		return err
	}
	if c.HasSubCriteria() {
		return fmt.Errorf("criterion %q: %w", criterionID, ErrHasSubCriteria)
	}
	c.Points = nonNegative(points)
	Recompute(r)
	return nil
}

// SetSubCriterionPoints sets a sub-criterion's cap.
func SetSubCriterionPoints(r *model.Rubric, criterionID, subID string, points float64) error {
	c, err := findCriterion(r, criterionID)
	if err != nil {
		return err
	}
	s, err := findSub(c, subID)
	if err != nil {
		return err
	}
	s.Points = nonNegative(points)
	Recompute(r)
	return nil
}

// Rename renames a criterion, or one of its sub-criteria when subID is set.
func Rename(r *model.Rubric, criterionID, subID, name string) error {
	c, err := findCriterion(r, criterionID)
	if err != nil {
		return err
	}
	if subID == "" {
		c.Name = name
		return nil
	}
	s, err := findSub(c, subID)
	if err != nil {
		return err
	}
	s.Name = name
	return nil
}

// RemoveCriterion deletes a criterion and its sub-criteria.
func RemoveCriterion(r *model.Rubric, criterionID string) error {
	for i := range r.Criteria {
		if r.Criteria[i].ID == criterionID {
			r.Criteria = append(r.Criteria[:i], r.Criteria[i+1:]...)
			Recompute(r)
			return nil
		}
	}
	return fmt.Errorf("criterion %q: %w", criterionID, ErrUnknownCriterion)
}

// RemoveSubCriterion deletes a sub-criterion. A criterion left without
// sub-criteria keeps the last derived sum as its own cap.
func RemoveSubCriterion(r *model.Rubric, criterionID, subID string) error {
	c, err := findCriterion(r, criterionID)
	if err != nil {
		return err
	}
	for i := range c.SubCriteria {
		if c.SubCriteria[i].ID == subID {
			c.SubCriteria = append(c.SubCriteria[:i], c.SubCriteria[i+1:]...)
			if len(c.SubCriteria) == 0 {
				c.SubCriteria = nil
			}
			Recompute(r)
			return nil
		}
	}
	return fmt.Errorf("sub-criterion %q of %q: %w", subID, criterionID, ErrUnknownCriterion)
}

// Leaf is one gradable rubric node, in rubric order.
type Leaf struct {
	CriterionID    string
	SubCriterionID string // empty for criteria without sub-criteria
	Label          string
	Cap            float64
}

// Leaves flattens the tree into its gradable nodes.
func Leaves(r model.Rubric) []Leaf {
	var out []Leaf
	for _, c := range r.Criteria {
		if !c.HasSubCriteria() {
			out = append(out, Leaf{CriterionID: c.ID, Label: c.Name, Cap: c.Points})
			continue
		}
		for _, s := range c.SubCriteria {
			out = append(out, Leaf{
				CriterionID:    c.ID,
				SubCriterionID: s.ID,
				Label:          c.Name + " / " + s.Name,
				Cap:            s.Points,
			})
		}
	}
	return out
}
