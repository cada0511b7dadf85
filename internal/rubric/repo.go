package rubric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// Repository persists rubrics in the rubrics collection.
type Repository struct {
	store *store.Store
}

// NewRepository creates a rubric repository.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

func rubricKey(r model.Rubric) string { return r.ID }

// List returns every rubric.
func (r *Repository) List(ctx context.Context) ([]model.Rubric, error) {
	return store.GetCollection[model.Rubric](ctx, r.store, model.CollectionRubrics)
}

// Get returns a rubric by id.
func (r *Repository) Get(ctx context.Context, id string) (model.Rubric, error) {
	rubrics, err := r.List(ctx)
	if err != nil {
		return model.Rubric{}, err
	}
	for _, rb := range rubrics {
		if rb.ID == id {
			return rb, nil
		}
	}
	return model.Rubric{}, &store.NotFoundError{Kind: "rubric", ID: id}
}

// Save validates, normalizes and upserts a rubric. Missing ids are assigned
// and an unset passing threshold defaults to half of the total.
func (r *Repository) Save(ctx context.Context, rb model.Rubric) (model.Rubric, error) {
	if err := Validate(rb); err != nil {
		slog.Warn("rubric rejected", "rubric_id", rb.ID, "error", err)
		return rb, err
	}
	AssignIDs(&rb)
	Recompute(&rb)
	if rb.PassingThreshold <= 0 {
		rb.PassingThreshold = rb.TotalPoints / 2
	}

	rubrics, err := r.List(ctx)
	if err != nil {
		return rb, err
	}
	replaced := false
	for i := range rubrics {
		if rubrics[i].ID == rb.ID {
			rubrics[i] = rb
			replaced = true
			break
		}
	}
	if !replaced {
		rubrics = append(rubrics, rb)
	}
	if err := store.SetCollection(ctx, r.store, model.CollectionRubrics, rubrics, rubricKey); err != nil {
		slog.Error("failed to save rubric", "rubric_id", rb.ID, "error", err)
		return rb, fmt.Errorf("save rubric: %w", err)
	}
	slog.Info("saved rubric", "rubric_id", rb.ID, "name", rb.Name, "total_points", rb.TotalPoints)
	return rb, nil
}

// Delete removes a rubric.
func (r *Repository) Delete(ctx context.Context, id string) error {
	rubrics, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := rubrics[:0]
	for _, rb := range rubrics {
		if rb.ID != id {
			kept = append(kept, rb)
		}
	}
	if len(kept) == len(rubrics) {
		return &store.NotFoundError{Kind: "rubric", ID: id}
	}
	return store.SetCollection(ctx, r.store, model.CollectionRubrics, kept, rubricKey)
}
