// Package evaluation creates evaluations and derives their progress,
// statistics and export grid from the stored copies.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
)

// NewEvaluation holds the fields supplied when creating an evaluation.
type NewEvaluation struct {
	Name        string
	Subject     string
	Group       string
	Date        string
	RubricID    string
	Coefficient float64
}

type Service struct {
	repo    *Repository
	rubrics *rubric.Repository
	roster  *roster.Roster
	now     func() time.Time
}

func NewService(repo *Repository, rubrics *rubric.Repository, r *roster.Roster) *Service {
	return &Service{repo: repo, rubrics: rubrics, roster: r, now: time.Now}
}

// Create stores a new evaluation with one ungraded copy per student of the
// group. MaxPoints is the rubric total at creation time.
func (s *Service) Create(ctx context.Context, ne NewEvaluation) (model.Evaluation, error) {
	if strings.TrimSpace(ne.Name) == "" {
		return model.Evaluation{}, fmt.Errorf("create evaluation: name is required")
	}
	rb, err := s.rubrics.Get(ctx, ne.RubricID)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("create evaluation: %w", err)
	}
	students, err := s.roster.Students(ctx, ne.Group)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("create evaluation: %w", err)
	}

	ev := model.Evaluation{
		ID:          uuid.NewString(),
		Name:        ne.Name,
		Subject:     ne.Subject,
		Group:       ne.Group,
		Date:        ne.Date,
		RubricID:    rb.ID,
		MaxPoints:   rb.TotalPoints,
		Coefficient: ne.Coefficient,
		Copies:      make([]model.Copy, 0, len(students)),
	}
	if ev.Date == "" {
		ev.Date = s.now().Format(time.DateOnly)
	}
	if ev.Coefficient <= 0 {
		ev.Coefficient = 1
	}
	for _, st := range students {
		ev.Copies = append(ev.Copies, model.Copy{StudentID: st.ID})
	}

	if err := s.repo.Save(ctx, ev); err != nil {
		return model.Evaluation{}, err
	}
	slog.Info("created evaluation", "evaluation_id", ev.ID, "group", ev.Group,
		"copies", len(ev.Copies), "max_points", ev.MaxPoints)
	return ev, nil
}

// Export builds the grid of a stored evaluation.
func (s *Service) Export(ctx context.Context, id string) (model.GridExport, error) {
	ev, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.GridExport{}, err
	}
	rb, err := s.rubrics.Get(ctx, ev.RubricID)
	if err != nil {
		return model.GridExport{}, fmt.Errorf("export evaluation: %w", err)
	}
	students, err := s.roster.Students(ctx, ev.Group)
	if err != nil {
		// The group may have been removed since; rows fall back to student ids.
		slog.Warn("group not found for export", "evaluation_id", ev.ID, "group", ev.Group, "error", err)
	}
	return Grid(ev, rb, students), nil
}
