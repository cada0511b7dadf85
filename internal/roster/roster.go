// Package roster looks up enrolled students. The students collection holds
// one record per group.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

type Roster struct {
	store *store.Store
}

func New(s *store.Store) *Roster {
	return &Roster{store: s}
}

func groupKey(g model.Group) string { return g.Name }

// Groups returns every group with its students.
func (r *Roster) Groups(ctx context.Context) ([]model.Group, error) {
	return store.GetCollection[model.Group](ctx, r.store, model.CollectionStudents)
}

// Students returns the students of group in enrollment order.
func (r *Roster) Students(ctx context.Context, group string) ([]model.Student, error) {
	groups, err := r.Groups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Name == group {
			return g.Students, nil
		}
	}
	return nil, &store.NotFoundError{Kind: "group", ID: group}
}

// Student finds a student in any group.
func (r *Roster) Student(ctx context.Context, id string) (model.Student, error) {
	groups, err := r.Groups(ctx)
	if err != nil {
		return model.Student{}, err
	}
	for _, g := range groups {
		for _, s := range g.Students {
			if s.ID == id {
				return s, nil
			}
		}
	}
	return model.Student{}, &store.NotFoundError{Kind: "student", ID: id}
}

// SaveGroup creates or replaces a group.
func (r *Roster) SaveGroup(ctx context.Context, g model.Group) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("save group: name is required")
	}
	groups, err := r.Groups(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range groups {
		if groups[i].Name == g.Name {
			groups[i] = g
			replaced = true
			break
		}
	}
	if !replaced {
		groups = append(groups, g)
	}
	if err := store.SetCollection(ctx, r.store, model.CollectionStudents, groups, groupKey); err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	slog.Info("saved group", "group", g.Name, "students", len(g.Students))
	return nil
}

// FullName returns "Last First", the order used in listings.
func FullName(s model.Student) string {
	return strings.TrimSpace(s.LastName + " " + s.FirstName)
}
