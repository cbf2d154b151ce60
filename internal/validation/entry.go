package validation

import (
	"strconv"
	"strings"

	"github.com/hyperengineering/platewise/internal/types"
)

// Entry field limits.
const (
	MaxFoodLength = 500
	MinSystolicBP = 40
	MaxSystolicBP = 300
	MinBowelScore = 1
	MaxBowelScore = 7
)

// Moderator reports whether text contains a blocked phrase.
type Moderator interface {
	Blocked(text string) bool
}

// ValidateNewEntry checks an entry submission. A nil moderator skips the
// content check.
func ValidateNewEntry(req types.NewEntryRequest, mod Moderator) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("food", req.Food))
	c.Add(ValidateMaxLength("food", req.Food, MaxFoodLength))
	c.Add(ValidateUTF8("food", req.Food))
	c.Add(ValidateNoNullBytes("food", req.Food))
	if mod != nil && mod.Blocked(req.Food) {
		c.Add(&ValidationError{Field: "food", Message: "contains inappropriate language"})
	}

	if req.Date != "" {
		c.Add(ValidateDate("date", req.Date, types.DateLayout))
	}
	if req.SystolicBP != nil {
		c.Add(ValidateRange("bps", *req.SystolicBP, MinSystolicBP, MaxSystolicBP))
	}
	if req.MealType != "" {
		c.Add(ValidateEnum("meal_type", req.MealType, mealTypeNames()))
	}
	c.Add(ValidateBowelScore("bs", req.BowelScore))
	c.Add(ValidateMaxLength("calories", req.Calories, 20))

	return c.Errors()
}

// ValidateBowelScore accepts an empty value or a Bristol scale score 1-7.
func ValidateBowelScore(field, value string) *ValidationError {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return &ValidationError{Field: field, Message: "must be a whole number"}
	}
	return ValidateRange(field, n, MinBowelScore, MaxBowelScore)
}

func mealTypeNames() []string {
	names := make([]string, len(types.MealTypes))
	for i, m := range types.MealTypes {
		names[i] = string(m)
	}
	return names
}
