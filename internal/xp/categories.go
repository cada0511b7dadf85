package xp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// CorrectionCategory is the category whose base XP rewards grading.
const CorrectionCategory = "correction"

// DefaultCategories seed an empty taskCategories collection.
var DefaultCategories = []model.TaskCategory{
	{ID: CorrectionCategory, Name: "Correction", BaseXP: 10},
	{ID: "preparation", Name: "Preparation", BaseXP: 15},
	{ID: "meeting", Name: "Meeting", BaseXP: 5},
	{ID: "admin", Name: "Administration", BaseXP: 5},
}

// Categories looks up task categories.
type Categories struct {
	store *store.Store
}

func NewCategories(s *store.Store) *Categories {
	return &Categories{store: s}
}

func categoryKey(c model.TaskCategory) string { return c.ID }

// List returns the task categories, writing the defaults first when the
// collection is empty.
func (c *Categories) List(ctx context.Context) ([]model.TaskCategory, error) {
	cats, err := store.GetCollection[model.TaskCategory](ctx, c.store, model.CollectionTaskCategories)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		return cats, nil
	}
	cats = append([]model.TaskCategory(nil), DefaultCategories...)
	if err := store.SetCollection(ctx, c.store, model.CollectionTaskCategories, cats, categoryKey); err != nil {
		return nil, fmt.Errorf("seed task categories: %w", err)
	}
	slog.Debug("seeded task categories", "count", len(cats))
	return cats, nil
}

// BaseXP returns the base XP of category id.
func (c *Categories) BaseXP(ctx context.Context, id string) (float64, error) {
	cats, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, cat := range cats {
		if cat.ID == id {
			return cat.BaseXP, nil
		}
	}
	return 0, &store.NotFoundError{Kind: "task category", ID: id}
}
