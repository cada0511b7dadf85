// Package grading holds the per-student grading session and saves it as a
// copy of the evaluation, awarding XP on a copy's first grading.
package grading

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/rubric"
)

var (
	// ErrNoSession is returned when operating on a cancelled session.
	ErrNoSession = errors.New("no grading session")
	// ErrNoStudent is returned for a student index outside the roster.
	ErrNoStudent = errors.New("no student at index")
)

// State is the lifecycle state of a Session.
type State int

const (
	Unloaded State = iota
	LoadedEmpty
	LoadedExisting
	Editing
	Saved
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case LoadedEmpty:
		return "loaded"
	case LoadedExisting:
		return "loaded-existing"
	case Editing:
		return "editing"
	case Saved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the in-memory grading state of one student's copy. Nothing is
// persisted until the session is saved.
type Session struct {
	EvaluationID string
	Student      model.Student
	StudentIndex int
	MaxPoints    float64
	Comments     string
	// Orphans are stored details whose criterion is no longer in the rubric.
	Orphans []model.CriterionDetail

	rubric   model.Rubric
	criteria []model.CriterionDetail
	state    State

	now       func() time.Time
	startedAt time.Time
	stoppedAt time.Time
}

// LoadStudent opens a session for the student at index. A graded copy is
// reconstructed by criterion id; otherwise every leaf starts at zero.
func LoadStudent(ev model.Evaluation, rb model.Rubric, students []model.Student, index int, now func() time.Time) (*Session, error) {
	if index < 0 || index >= len(students) {
		return nil, fmt.Errorf("%w %d (%d students)", ErrNoStudent, index, len(students))
	}
	if now == nil {
		now = time.Now
	}
	st := students[index]
	s := &Session{
		EvaluationID: ev.ID,
		Student:      st,
		StudentIndex: index,
		MaxPoints:    ev.MaxPoints,
		rubric:       rb,
		now:          now,
		startedAt:    now(),
	}
	if s.MaxPoints == 0 {
		s.MaxPoints = rubric.TotalPoints(rb)
	}

	var prior *model.Copy
	for i := range ev.Copies {
		if ev.Copies[i].StudentID == st.ID {
			prior = &ev.Copies[i]
			break
		}
	}
	if prior != nil {
		s.Comments = prior.Comments
	}
	if prior == nil || !prior.Graded() {
		s.criteria = emptyDetails(rb)
		s.state = LoadedEmpty
		return s, nil
	}

	s.criteria, s.Orphans = reconstruct(rb, prior.Details)
	s.state = LoadedExisting
	if len(s.Orphans) > 0 {
		slog.Warn("stored details do not match the rubric",
			"evaluation_id", ev.ID, "student_id", st.ID, "orphans", len(s.Orphans))
	}
	return s, nil
}

func emptyDetails(rb model.Rubric) []model.CriterionDetail {
	out := make([]model.CriterionDetail, len(rb.Criteria))
	for i, c := range rb.Criteria {
		out[i].ID = c.ID
		if !c.HasSubCriteria() {
			continue
		}
		out[i].SubCriteria = make([]model.SubCriterionDetail, len(c.SubCriteria))
		for j, sc := range c.SubCriteria {
			out[i].SubCriteria[j].ID = sc.ID
		}
	}
	return out
}

// reconstruct pairs stored details with rubric nodes by id. A stored detail
// without an id falls back to its position. Points are clamped to the
// current caps.
func reconstruct(rb model.Rubric, stored []model.CriterionDetail) (criteria, orphans []model.CriterionDetail) {
	criteria = emptyDetails(rb)
	used := make([]bool, len(stored))

	for i, c := range rb.Criteria {
		j := match(stored, used, detailID, c.ID, i)
		if j < 0 {
			continue
		}
		used[j] = true
		d := stored[j]
		if !c.HasSubCriteria() {
			criteria[i].Points = clamp(d.Points, c.Points)
			continue
		}
		subUsed := make([]bool, len(d.SubCriteria))
		sum := 0.0
		for k, sc := range c.SubCriteria {
			m := match(d.SubCriteria, subUsed, subDetailID, sc.ID, k)
			if m < 0 {
				continue
			}
			subUsed[m] = true
			p := clamp(d.SubCriteria[m].Points, sc.Points)
			criteria[i].SubCriteria[k].Points = p
			sum += p
		}
		criteria[i].Points = sum
		for k, ok := range subUsed {
			if !ok {
				orphans = append(orphans, model.CriterionDetail{
					ID:          d.ID,
					SubCriteria: []model.SubCriterionDetail{d.SubCriteria[k]},
				})
			}
		}
	}
	for j, ok := range used {
		if !ok {
			orphans = append(orphans, stored[j])
		}
	}
	return criteria, orphans
}

// match returns the unused stored entry with id, or the entry at pos when
// it carries no id. -1 means no match.
func match[T any](stored []T, used []bool, idOf func(T) string, id string, pos int) int {
	for j, d := range stored {
		if !used[j] && idOf(d) != "" && idOf(d) == id {
			return j
		}
	}
	if pos < len(stored) && !used[pos] && idOf(stored[pos]) == "" {
		return pos
	}
	return -1
}

func detailID(d model.CriterionDetail) string       { return d.ID }
func subDetailID(d model.SubCriterionDetail) string { return d.ID }

func clamp(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Session) State() State { return s.state }

// Rubric returns the rubric the session grades against.
func (s *Session) Rubric() model.Rubric { return s.rubric }

// Details returns a copy of the criteria tree with the awarded points.
func (s *Session) Details() []model.CriterionDetail {
	out := make([]model.CriterionDetail, len(s.criteria))
	for i, d := range s.criteria {
		out[i] = d
		if d.SubCriteria != nil {
			out[i].SubCriteria = append([]model.SubCriterionDetail(nil), d.SubCriteria...)
		}
	}
	return out
}

// TotalPoints is the sum of every criterion's points.
func (s *Session) TotalPoints() float64 {
	total := 0.0
	for _, d := range s.criteria {
		total += d.Points
	}
	return total
}

// Points returns the points awarded to a criterion, or to one of its
// sub-criteria when subID is set.
func (s *Session) Points(criterionID, subID string) float64 {
	for _, d := range s.criteria {
		if d.ID != criterionID {
			continue
		}
		if subID == "" {
			return d.Points
		}
		for _, sd := range d.SubCriteria {
			if sd.ID == subID {
				return sd.Points
			}
		}
	}
	return 0
}

func (s *Session) criterionIndex(id string) (int, error) {
	for i, c := range s.rubric.Criteria {
		if c.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("criterion %q: %w", id, rubric.ErrUnknownCriterion)
}

func (s *Session) edit() error {
	if s.state == Unloaded {
		return ErrNoSession
	}
	s.state = Editing
	return nil
}

// SetCriterionPoints sets the points of a criterion without sub-criteria,
// clamped to [0, cap].
func (s *Session) SetCriterionPoints(criterionID string, v float64) error {
	if s.state == Unloaded {
		return ErrNoSession
	}
	i, err := s.criterionIndex(criterionID)
	if err != nil {
		return err
	}
	c := s.rubric.Criteria[i]
	if c.HasSubCriteria() {
		return fmt.Errorf("criterion %q: %w", criterionID, rubric.ErrHasSubCriteria)
	}
	s.criteria[i].Points = clamp(v, c.Points)
	return s.edit()
}

// SetSubCriterionPoints sets a sub-criterion's points, clamped to [0, cap],
// and recomputes its criterion as the sum of its sub-criteria.
func (s *Session) SetSubCriterionPoints(criterionID, subID string, v float64) error {
	if s.state == Unloaded {
		return ErrNoSession
	}
	i, err := s.criterionIndex(criterionID)
	if err != nil {
		return err
	}
	c := s.rubric.Criteria[i]
	for k, sc := range c.SubCriteria {
		if sc.ID != subID {
			continue
		}
		d := &s.criteria[i]
		d.SubCriteria[k].Points = clamp(v, sc.Points)
		d.Points = 0
		for _, sd := range d.SubCriteria {
			d.Points += sd.Points
		}
		return s.edit()
	}
	return fmt.Errorf("sub-criterion %q of %q: %w", subID, criterionID, rubric.ErrUnknownCriterion)
}

// SetComments replaces the free-text feedback.
func (s *Session) SetComments(comments string) error {
	if s.state == Unloaded {
		return ErrNoSession
	}
	s.Comments = comments
	return s.edit()
}

// Elapsed returns the whole seconds spent on the session. The timer stops
// when the session is saved or cancelled.
func (s *Session) Elapsed() int {
	end := s.stoppedAt
	if end.IsZero() {
		end = s.now()
	}
	d := end.Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func (s *Session) markSaved() {
	s.state = Saved
	if s.stoppedAt.IsZero() {
		s.stoppedAt = s.now()
	}
}

// Cancel discards unsaved edits and stops the timer.
func (s *Session) Cancel() {
	if s.stoppedAt.IsZero() {
		s.stoppedAt = s.now()
	}
	s.state = Unloaded
	s.criteria = nil
	s.Comments = ""
	s.Orphans = nil
}
