package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// DefaultRetryDelay is the pause before reloading unreadable schedule data.
const DefaultRetryDelay = 500 * time.Millisecond

// TransientLoadError reports schedule data that could not be read even after
// a reload.
type TransientLoadError struct {
	Key string
	Err error
}

func (e *TransientLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Key, e.Err)
}

func (e *TransientLoadError) Unwrap() error {
	return e.Err
}

// LoadOptions configures Load.
type LoadOptions struct {
	// RetryDelay is the pause before the single reload. Zero means
	// DefaultRetryDelay; a negative value retries immediately.
	RetryDelay time.Duration
}

// Load reads the calendar singletons. Missing ones are empty. A failed read
// is retried once after the delay before a TransientLoadError is returned.
func Load(ctx context.Context, s *store.Store, opts LoadOptions) (Calendar, error) {
	delay := opts.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}

	cal, key, err := read(ctx, s)
	if err == nil {
		return cal, nil
	}
	slog.Warn("schedule data unreadable, retrying", "key", key, "delay", delay, "error", err)

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Calendar{}, &TransientLoadError{Key: key, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	cal, key, err = read(ctx, s)
	if err != nil {
		slog.Error("failed to load schedule", "key", key, "error", err)
		return Calendar{}, &TransientLoadError{Key: key, Err: err}
	}
	return cal, nil
}

func read(ctx context.Context, s *store.Store) (cal Calendar, key string, err error) {
	if cal.Regular, _, err = store.GetData[model.RegularSchedule](ctx, s, model.KeyRegularSchedule); err != nil {
		return cal, model.KeyRegularSchedule, err
	}
	if cal.Holidays, _, err = store.GetData[[]model.Holiday](ctx, s, model.KeyHolidays); err != nil {
		return cal, model.KeyHolidays, err
	}
	if cal.Internships, _, err = store.GetData[[]model.InternshipPeriod](ctx, s, model.KeyInternships); err != nil {
		return cal, model.KeyInternships, err
	}
	if cal.Alternation, _, err = store.GetData[model.AlternatingWeeks](ctx, s, model.KeyAlternatingWeeks); err != nil {
		return cal, model.KeyAlternatingWeeks, err
	}
	return cal, "", nil
}

// Save writes the calendar singletons.
func Save(ctx context.Context, s *store.Store, cal Calendar) error {
	if err := store.SetData(ctx, s, model.KeyRegularSchedule, cal.Regular); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	if err := store.SetData(ctx, s, model.KeyHolidays, cal.Holidays); err != nil {
		return fmt.Errorf("save holidays: %w", err)
	}
	if err := store.SetData(ctx, s, model.KeyInternships, cal.Internships); err != nil {
		return fmt.Errorf("save internships: %w", err)
	}
	if err := store.SetData(ctx, s, model.KeyAlternatingWeeks, cal.Alternation); err != nil {
		return fmt.Errorf("save alternating weeks: %w", err)
	}
	return nil
}
