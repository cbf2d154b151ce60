package engine

import (
	"fmt"
	"time"

	"github.com/hyperengineering/platewise/internal/food"
)

// DefaultWindow is the minimum spacing between S and P foods.
const DefaultWindow = 3 * time.Hour

// Conflict types reported in TimingInfo.
const (
	ConflictSAfterP = "S after P"
	ConflictPAfterS = "P after S"
)

// WarningCombination is the warning for an entry that is itself S + P.
const WarningCombination = "S + P combination detected!"

// TimingInfo describes a cooldown violation.
type TimingInfo struct {
	Allowed      bool      `json:"allowed"`
	ConflictType string    `json:"conflict_type"`
	LastFoodTime time.Time `json:"last_food_time"`
	WaitUntil    time.Time `json:"wait_until"`
	RemainingMs  int64     `json:"remaining_ms"`
}

// ComboResult is the verdict on one entry.
type ComboResult struct {
	Safe    bool        `json:"safe"`
	Warning *string     `json:"warning"`
	Timing  *TimingInfo `json:"timing_info"`
}

// Analysis is the derived result of analyzing one food description.
// It is recomputed on demand and never stored.
type Analysis struct {
	Components []string        `json:"components"`
	Categories []food.Category `json:"categories"`
	Combo      ComboResult     `json:"combo"`
}

// CooldownState holds when the last accepted S and P foods were eaten.
// A nil timestamp means no prior entry.
type CooldownState struct {
	LastS *time.Time `json:"last_s_food_time"`
	LastP *time.Time `json:"last_p_food_time"`
}

// Evaluate applies the combination rule and then the cooldown rule.
// It is pure: the state is not modified.
func Evaluate(categories []food.Category, state CooldownState, now time.Time, window time.Duration) ComboResult {
	hasS := containsCategory(categories, food.CategoryS)
	hasP := containsCategory(categories, food.CategoryP)

	if hasS && hasP {
		return unsafe(WarningCombination, nil)
	}

	if hasS && state.LastP != nil && now.Sub(*state.LastP) < window {
		return timingConflict(ConflictSAfterP, *state.LastP, now, window)
	}
	if hasP && state.LastS != nil && now.Sub(*state.LastS) < window {
		return timingConflict(ConflictPAfterS, *state.LastS, now, window)
	}

	return ComboResult{Safe: true}
}

// Advance records now for every category present. Callers only advance
// the state for safe verdicts; W-only entries leave it unchanged.
func Advance(state CooldownState, categories []food.Category, now time.Time) CooldownState {
	next := state
	if containsCategory(categories, food.CategoryS) {
		t := now
		next.LastS = &t
	}
	if containsCategory(categories, food.CategoryP) {
		t := now
		next.LastP = &t
	}
	return next
}

// WaitWarning formats the user-facing cooldown warning.
func WaitWarning(conflictType string, remaining time.Duration) string {
	minutes := remaining.Milliseconds() / 1000 / 60
	return fmt.Sprintf("Wait %d minutes before eating %s", minutes, conflictType)
}

func timingConflict(conflictType string, last, now time.Time, window time.Duration) ComboResult {
	waitUntil := last.Add(window)
	remaining := waitUntil.Sub(now)
	info := &TimingInfo{
		Allowed:      false,
		ConflictType: conflictType,
		LastFoodTime: last,
		WaitUntil:    waitUntil,
		RemainingMs:  remaining.Milliseconds(),
	}
	return unsafe(WaitWarning(conflictType, remaining), info)
}

func unsafe(warning string, info *TimingInfo) ComboResult {
	return ComboResult{Safe: false, Warning: &warning, Timing: info}
}

func containsCategory(categories []food.Category, c food.Category) bool {
	for _, got := range categories {
		if got == c {
			return true
		}
	}
	return false
}
