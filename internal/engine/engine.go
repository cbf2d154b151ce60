// Package engine evaluates food entries against the S + P combination rule
// and the S/P alternation cooldown.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hyperengineering/platewise/internal/food"
)

// Engine resolves, categorizes and judges food text, advancing the
// cooldown state for accepted entries.
type Engine struct {
	rules    *food.Ruleset
	cooldown CooldownStore
	window   time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow overrides the cooldown window. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithClock overrides the clock used by AnalyzeFoodText.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine. A nil ruleset uses the built-in defaults and a nil
// store keeps the cooldown in memory.
func New(rules *food.Ruleset, cooldown CooldownStore, opts ...Option) *Engine {
	if rules == nil {
		rules = food.DefaultRuleset()
	}
	if cooldown == nil {
		cooldown = NewMemoryCooldownStore(CooldownState{})
	}
	e := &Engine{
		rules:    rules,
		cooldown: cooldown,
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the ruleset the engine works from.
func (e *Engine) Rules() *food.Ruleset {
	return e.rules
}

// Window returns the cooldown window.
func (e *Engine) Window() time.Duration {
	return e.window
}

// Resolve decomposes text into components and their categories.
func (e *Engine) Resolve(text string) ([]string, []food.Category) {
	components := e.rules.ResolveDish(text)
	return components, e.rules.CategorizeAll(components)
}

// AnalyzeFoodText analyzes a submission made now.
func (e *Engine) AnalyzeFoodText(ctx context.Context, text string) (Analysis, error) {
	return e.Analyze(ctx, text, e.now())
}

// Analyze judges text as eaten at now. A safe verdict advances the cooldown
// for every category present; an unsafe verdict leaves it untouched.
// Errors come only from the cooldown store.
func (e *Engine) Analyze(ctx context.Context, text string, now time.Time) (Analysis, error) {
	components, categories := e.Resolve(text)

	var combo ComboResult
	err := e.cooldown.UpdateCooldown(ctx, func(current CooldownState) (CooldownState, bool) {
		combo = Evaluate(categories, current, now, e.window)
		if !combo.Safe {
			return current, false
		}
		next := Advance(current, categories, now)
		return next, next != current
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("update cooldown: %w", err)
	}

	logVerdict(ctx, text, combo)
	return Analysis{Components: components, Categories: categories, Combo: combo}, nil
}

// Preview judges text against the current cooldown without changing it.
func (e *Engine) Preview(ctx context.Context, text string, now time.Time) (Analysis, error) {
	components, categories := e.Resolve(text)
	state, err := e.cooldown.LoadCooldown(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("load cooldown: %w", err)
	}
	return Analysis{
		Components: components,
		Categories: categories,
		Combo:      Evaluate(categories, state, now, e.window),
	}, nil
}

// Cooldown returns the persisted cooldown state.
func (e *Engine) Cooldown(ctx context.Context) (CooldownState, error) {
	return e.cooldown.LoadCooldown(ctx)
}

// HistoricalEntry is a logged food with the time it was eaten.
type HistoricalEntry struct {
	Food string
	At   time.Time
}

// Replay re-analyzes historical entries in chronological order against a
// fresh cooldown, using each entry's own time as "now". The result is
// indexed like entries and does not depend on when Replay runs.
func Replay(rules *food.Ruleset, entries []HistoricalEntry, window time.Duration) []Analysis {
	if rules == nil {
		rules = food.DefaultRuleset()
	}
	if window <= 0 {
		window = DefaultWindow
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].At.Before(entries[order[b]].At)
	})

	out := make([]Analysis, len(entries))
	var state CooldownState
	for _, idx := range order {
		entry := entries[idx]
		components := rules.ResolveDish(entry.Food)
		categories := rules.CategorizeAll(components)
		combo := Evaluate(categories, state, entry.At, window)
		if combo.Safe {
			state = Advance(state, categories, entry.At)
		}
		out[idx] = Analysis{Components: components, Categories: categories, Combo: combo}
	}
	return out
}

func logVerdict(ctx context.Context, text string, combo ComboResult) {
	attrs := []any{
		"component", "engine",
		"action", "analyze",
		"food", text,
		"safe", combo.Safe,
	}
	if combo.Timing != nil {
		attrs = append(attrs, "conflict_type", combo.Timing.ConflictType, "remaining_ms", combo.Timing.RemainingMs)
	}
	slog.DebugContext(ctx, "food analyzed", attrs...)
}
