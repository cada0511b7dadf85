package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// Repository persists evaluations in the evaluations collection.
type Repository struct {
	store *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

func evaluationKey(ev model.Evaluation) string { return ev.ID }

func (r *Repository) List(ctx context.Context) ([]model.Evaluation, error) {
	return store.GetCollection[model.Evaluation](ctx, r.store, model.CollectionEvaluations)
}

func (r *Repository) Get(ctx context.Context, id string) (model.Evaluation, error) {
	evs, err := r.List(ctx)
	if err != nil {
		return model.Evaluation{}, err
	}
	for _, ev := range evs {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Evaluation{}, &store.NotFoundError{Kind: "evaluation", ID: id}
}

// Save upserts ev. An oversized write is retried with ev alone.
func (r *Repository) Save(ctx context.Context, ev model.Evaluation) error {
	evs, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range evs {
		if evs[i].ID == ev.ID {
			evs[i] = ev
			replaced = true
			break
		}
	}
	if !replaced {
		evs = append(evs, ev)
	}
	if err := store.SaveRecord(ctx, r.store, model.CollectionEvaluations, evs, ev, evaluationKey); err != nil {
		slog.Error("failed to save evaluation", "evaluation_id", ev.ID, "error", err)
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	evs, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := evs[:0]
	for _, ev := range evs {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	if len(kept) == len(evs) {
		return &store.NotFoundError{Kind: "evaluation", ID: id}
	}
	return store.SetCollection(ctx, r.store, model.CollectionEvaluations, kept, evaluationKey)
}
