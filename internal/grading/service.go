package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/classbook/internal/evaluation"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
	"github.com/pavelanni/classbook/internal/store"
	"github.com/pavelanni/classbook/internal/xp"
)

// Options configures a Service.
type Options struct {
	// CorrectionCategory is the task category whose base XP rewards grading.
	CorrectionCategory string
	Clock              func() time.Time
}

// Service loads grading sessions and saves them as copies.
type Service struct {
	evaluations *evaluation.Repository
	rubrics     *rubric.Repository
	roster      *roster.Roster
	ledger      *xp.Ledger
	categories  *xp.Categories
	category    string
	now         func() time.Time
}

func NewService(s *store.Store, opts Options) *Service {
	if opts.CorrectionCategory == "" {
		opts.CorrectionCategory = xp.CorrectionCategory
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		evaluations: evaluation.NewRepository(s),
		rubrics:     rubric.NewRepository(s),
		roster:      roster.New(s),
		ledger:      xp.NewLedger(s),
		categories:  xp.NewCategories(s),
		category:    opts.CorrectionCategory,
		now:         opts.Clock,
	}
}

// SaveResult reports what a save did. Award, Profile and LeveledUp are only
// set on a first grading.
type SaveResult struct {
	Evaluation   model.Evaluation
	FirstGrading bool
	Award        xp.Award
	Profile      model.UserProfile
	LeveledUp    bool
}

// Start opens a session for the student at index in the evaluation's group.
// Grading cannot start when the rubric is missing.
func (svc *Service) Start(ctx context.Context, evaluationID string, index int) (*Session, error) {
	ev, err := svc.evaluations.Get(ctx, evaluationID)
	if err != nil {
		slog.Error("failed to load evaluation", "evaluation_id", evaluationID, "error", err)
		return nil, fmt.Errorf("start grading: %w", err)
	}
	rb, err := svc.rubrics.Get(ctx, ev.RubricID)
	if err != nil {
		slog.Error("failed to load rubric", "evaluation_id", ev.ID, "rubric_id", ev.RubricID, "error", err)
		return nil, fmt.Errorf("start grading: %w", err)
	}
	students, err := svc.roster.Students(ctx, ev.Group)
	if err != nil {
		slog.Error("failed to load students", "evaluation_id", ev.ID, "group", ev.Group, "error", err)
		return nil, fmt.Errorf("start grading: %w", err)
	}
	sess, err := LoadStudent(ev, rb, students, index, svc.now)
	if err != nil {
		return nil, fmt.Errorf("start grading: %w", err)
	}
	slog.Debug("grading session started", "evaluation_id", ev.ID,
		"student_id", sess.Student.ID, "state", sess.State())
	return sess, nil
}

// Save writes the session as the student's copy. XP is granted only when the
// stored copy was ungraded (or absent) before this save, and only once the
// copy is persisted. On error the session is left untouched for a retry.
func (svc *Service) Save(ctx context.Context, sess *Session) (SaveResult, error) {
	if sess == nil || sess.State() == Unloaded {
		return SaveResult{}, ErrNoSession
	}
	ev, err := svc.evaluations.Get(ctx, sess.EvaluationID)
	if err != nil {
		slog.Error("failed to load evaluation", "evaluation_id", sess.EvaluationID, "error", err)
		return SaveResult{}, fmt.Errorf("save grade: %w", err)
	}

	idx := -1
	for i := range ev.Copies {
		if ev.Copies[i].StudentID == sess.Student.ID {
			idx = i
			break
		}
	}
	// Read before the copy is overwritten.
	first := idx < 0 || !ev.Copies[idx].Graded()

	grade := sess.TotalPoints()
	gradedAt := svc.now()
	cp := model.Copy{
		StudentID: sess.Student.ID,
		Grade:     &grade,
		Comments:  sess.Comments,
		Details:   sess.Details(),
		GradedAt:  &gradedAt,
	}
	copies := append([]model.Copy(nil), ev.Copies...)
	if idx < 0 {
		copies = append(copies, cp)
	} else {
		copies[idx] = cp
	}
	ev.Copies = copies

	if err := svc.evaluations.Save(ctx, ev); err != nil {
		slog.Error("failed to save grade", "evaluation_id", ev.ID, "student_id", cp.StudentID, "error", err)
		return SaveResult{}, fmt.Errorf("save grade: %w", err)
	}
	seconds := sess.Elapsed()
	sess.markSaved()
	slog.Info("saved grade", "evaluation_id", ev.ID, "student_id", cp.StudentID,
		"grade", grade, "first_grading", first, "seconds", seconds)

	res := SaveResult{Evaluation: ev, FirstGrading: first}
	if !first {
		return res, nil
	}
	base, err := svc.categories.BaseXP(ctx, svc.category)
	if err != nil {
		// The grade is stored; only the reward is lost.
		slog.Error("failed to look up base xp", "category", svc.category, "error", err)
		return res, nil
	}
	res.Award = xp.Calculate(base, seconds, cp.Details, cp.Comments)
	res.Profile, res.LeveledUp, err = svc.ledger.Grant(ctx, res.Award)
	if err != nil {
		slog.Error("failed to grant xp", "evaluation_id", ev.ID, "student_id", cp.StudentID, "error", err)
	}
	return res, nil
}

// SaveAndNext saves the session and opens the next student. next is nil
// after the last student.
func (svc *Service) SaveAndNext(ctx context.Context, sess *Session) (SaveResult, *Session, error) {
	res, err := svc.Save(ctx, sess)
	if err != nil {
		return res, nil, err
	}
	next, err := svc.Start(ctx, sess.EvaluationID, sess.StudentIndex+1)
	if err != nil {
		if errors.Is(err, ErrNoStudent) {
			return res, nil, nil
		}
		return res, nil, err
	}
	return res, next, nil
}

// Profile returns the user's XP profile.
func (svc *Service) Profile(ctx context.Context) (model.UserProfile, error) {
	return svc.ledger.Profile(ctx)
}
