package xp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// Threshold returns the cumulative XP needed to leave level.
func Threshold(level int) int {
	return 100*level + 50*(level-1)*(level-1)
}

// NewProfile returns a level 1 profile with no XP.
func NewProfile(name string) model.UserProfile {
	return model.UserProfile{Name: name, Level: 1, NextLevelXP: Threshold(1)}
}

// Add credits amount to the profile and raises its level for every threshold
// crossed. It reports whether the level changed.
func Add(p *model.UserProfile, amount int) bool {
	if p.Level < 1 {
		p.Level = 1
	}
	p.XP += amount
	start := p.Level
	p.NextLevelXP = Threshold(p.Level)
	for p.XP >= p.NextLevelXP {
		p.Level++
		p.NextLevelXP = Threshold(p.Level)
	}
	return p.Level != start
}

// Ledger persists the user profile.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a ledger backed by the user singleton.
func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s}
}

// Profile returns the stored profile, or a fresh one when none exists.
func (l *Ledger) Profile(ctx context.Context) (model.UserProfile, error) {
	p, ok, err := store.GetData[model.UserProfile](ctx, l.store, model.KeyUser)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	if !ok {
		return NewProfile(""), nil
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.NextLevelXP == 0 {
		p.NextLevelXP = Threshold(p.Level)
	}
	return p, nil
}

// Grant adds an award to the stored profile and saves it.
func (l *Ledger) Grant(ctx context.Context, a Award) (model.UserProfile, bool, error) {
	p, err := l.Profile(ctx)
	if err != nil {
		return p, false, err
	}
	leveledUp := Add(&p, a.Total)
	if err := store.SetData(ctx, l.store, model.KeyUser, p); err != nil {
		slog.Error("failed to save profile", "xp", p.XP, "error", err)
		return p, false, fmt.Errorf("save profile: %w", err)
	}
	slog.Info("granted xp", "xp", a.Total, "total_xp", p.XP, "level", p.Level)
	if leveledUp {
		slog.Info("level up", "level", p.Level, "next_level_xp", p.NextLevelXP)
	}
	return p, leveledUp, nil
}
