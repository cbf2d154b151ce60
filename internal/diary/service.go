// Package diary logs food entries, runs them through the combination engine
// and manages favorites and health reminders.
package diary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/store"
	"github.com/hyperengineering/platewise/internal/types"
	"github.com/hyperengineering/platewise/internal/validation"
)

// bpReminderKeyPrefix prefixes the per-date "reminder shown" setting.
const bpReminderKeyPrefix = "bp_reminder_shown:"

// Service is the diary's application layer.
type Service struct {
	store     store.Store
	engine    *engine.Engine
	moderator validation.Moderator
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithModerator sets the blocked-phrase check applied to submitted food.
func WithModerator(m validation.Moderator) Option {
	return func(s *Service) { s.moderator = m }
}

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a diary service over st, judging entries with eng.
func NewService(st store.Store, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{store: st, engine: eng, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the combination engine.
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// AddEntry validates and logs a food entry. The verdict is advisory: the entry
// is saved whether or not the combination is safe, and only a safe verdict
// advances the cooldown.
func (s *Service) AddEntry(ctx context.Context, req types.NewEntryRequest) (*types.AddEntryResult, error) {
	req.Food = strings.TrimSpace(req.Food)
	if errs := validation.ValidateNewEntry(req, s.moderator); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	now := s.now()
	entry := types.Entry{
		ID:         ulid.Make().String(),
		Food:       req.Food,
		Date:       req.Date,
		Timestamp:  now,
		SystolicBP: req.SystolicBP,
		Sick:       req.Sick,
		MealType:   types.MealType(req.MealType),
		Calories:   strings.TrimSpace(req.Calories),
		BowelScore: strings.TrimSpace(req.BowelScore),
	}
	if entry.Date == "" {
		entry.Date = now.Format(types.DateLayout)
	}
	if entry.MealType == "" {
		entry.MealType = types.MealUnspecified
	}

	// The cooldown may only move for a saved entry: save first, then commit
	// the verdict, and take the entry back out if the commit fails.
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}

	analysis, err := s.engine.Analyze(ctx, entry.Food, now)
	if err != nil {
		if derr := s.store.DeleteEntry(context.WithoutCancel(ctx), entry.ID); derr != nil {
			slog.Error("rollback of unanalyzed entry failed",
				"component", "diary",
				"action", "add_entry",
				"entry_id", entry.ID,
				"error", derr,
			)
		}
		return nil, fmt.Errorf("analyze entry: %w", err)
	}
	recordVerdict(analysis.Combo)

	remind, err := s.checkBPReminder(ctx, entry.Date)
	if err != nil {
		// The entry is already saved.
		slog.Warn("bp reminder check failed",
			"component", "diary",
			"date", entry.Date,
			"error", err,
		)
	}

	slog.Info("entry logged",
		"component", "diary",
		"action", "add_entry",
		"entry_id", entry.ID,
		"safe", analysis.Combo.Safe,
		"sick", entry.Sick,
	)

	return &types.AddEntryResult{
		Entry:      entry,
		Analysis:   analysis,
		Triggers:   s.triggers(analysis.Components),
		BPReminder: remind,
	}, nil
}

// Analyze previews the verdict for text without logging anything.
func (s *Service) Analyze(ctx context.Context, text string) (*types.AnalyzeResponse, error) {
	analysis, err := s.engine.Preview(ctx, text, s.now())
	if err != nil {
		return nil, err
	}
	return &types.AnalyzeResponse{Analysis: analysis, Triggers: s.triggers(analysis.Components)}, nil
}

// ListEntries returns entries matching filter, newest first.
func (s *Service) ListEntries(ctx context.Context, filter types.EntryFilter) ([]types.Entry, error) {
	switch filter {
	case "", types.FilterAll, types.FilterSick, types.FilterOkay:
	default:
		return nil, &ValidationFailedError{Errors: []validation.ValidationError{{
			Field:   "filter",
			Message: "must be one of: all, sick, okay",
		}}}
	}
	return s.store.ListEntries(ctx, filter)
}

// DeleteEntry removes one entry.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	slog.Info("entry deleted", "component", "diary", "action", "delete_entry", "entry_id", id)
	return nil
}

// ClearEntries removes every entry. Favorites and the cooldown are kept.
func (s *Service) ClearEntries(ctx context.Context) (int64, error) {
	n, err := s.store.ClearEntries(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("entries cleared", "component", "diary", "action", "clear_entries", "count", n)
	return n, nil
}

// AddFavorite saves a copy of an entry. Entries marked sick are rejected and
// the same food on the same date is only saved once.
func (s *Service) AddFavorite(ctx context.Context, entryID string) (*types.Favorite, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Sick {
		return nil, ErrSickFavorite
	}

	fav := types.Favorite{
		ID:         ulid.Make().String(),
		EntryID:    entry.ID,
		Food:       entry.Food,
		Date:       entry.Date,
		MealType:   entry.MealType,
		Calories:   entry.Calories,
		SystolicBP: entry.SystolicBP,
		BowelScore: entry.BowelScore,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateFavorite(ctx, fav); err != nil {
		return nil, err
	}
	return &fav, nil
}

// ListFavorites returns saved favorites.
func (s *Service) ListFavorites(ctx context.Context) ([]types.Favorite, error) {
	return s.store.ListFavorites(ctx)
}

// DeleteFavorite removes a favorite.
func (s *Service) DeleteFavorite(ctx context.Context, id string) error {
	return s.store.DeleteFavorite(ctx, id)
}

// checkBPReminder reports whether to remind the user to record blood
// pressure for date: at least two entries, none with a reading, and no
// reminder shown for that date yet. Showing it marks the date.
func (s *Service) checkBPReminder(ctx context.Context, date string) (bool, error) {
	entries, err := s.store.ListEntriesByDate(ctx, date)
	if err != nil {
		return false, err
	}
	if len(entries) < 2 {
		return false, nil
	}
	for _, e := range entries {
		if e.SystolicBP != nil {
			return false, nil
		}
	}

	key := bpReminderKeyPrefix + date
	_, shown, err := s.store.GetSetting(ctx, key)
	if err != nil || shown {
		return false, err
	}
	if err := s.store.SetSetting(ctx, key, "true"); err != nil {
		return false, err
	}
	metricBPReminders.Inc()
	return true, nil
}

func (s *Service) triggers(components []string) []string {
	var out []string
	rules := s.engine.Rules()
	for _, c := range components {
		if rules.IsTrigger(c) {
			out = append(out, c)
		}
	}
	return out
}
