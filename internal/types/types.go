package types

import (
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
)

// DateLayout is the calendar-date format used for entry dates.
const DateLayout = "2006-01-02"

// MealType is the meal an entry belongs to.
type MealType string

const (
	MealBreakfast   MealType = "Breakfast"
	MealLunch       MealType = "Lunch"
	MealDinner      MealType = "Dinner"
	MealSnacks      MealType = "Snacks"
	MealDessert     MealType = "Dessert"
	MealUnspecified MealType = "Unspecified"
)

// MealTypes lists every accepted meal type.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnacks, MealDessert, MealUnspecified}

// EntryFilter selects diary entries by how the user felt.
type EntryFilter string

const (
	FilterAll  EntryFilter = "all"
	FilterSick EntryFilter = "sick"
	FilterOkay EntryFilter = "okay"
)

// Entry is one logged food.
type Entry struct {
	ID         string    `json:"id"`
	Food       string    `json:"food"`
	Date       string    `json:"date"`
	Timestamp  time.Time `json:"timestamp"`
	SystolicBP *int      `json:"bps"`
	Sick       bool      `json:"sick"`
	MealType   MealType  `json:"meal_type"`
	Calories   string    `json:"calories"`
	BowelScore string    `json:"bs"`
}

// Favorite is a saved copy of an entry the user felt fine after.
type Favorite struct {
	ID         string    `json:"id"`
	EntryID    string    `json:"entry_id"`
	Food       string    `json:"food"`
	Date       string    `json:"date"`
	MealType   MealType  `json:"meal_type"`
	Calories   string    `json:"calories"`
	SystolicBP *int      `json:"bps"`
	BowelScore string    `json:"bs"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntryRequest is the body of an entry submission.
// Date defaults to the submission day; Timestamp is always the submission time.
type NewEntryRequest struct {
	Food       string `json:"food"`
	Date       string `json:"date,omitempty"`
	SystolicBP *int   `json:"bps,omitempty"`
	Sick       bool   `json:"sick"`
	MealType   string `json:"meal_type,omitempty"`
	Calories   string `json:"calories,omitempty"`
	BowelScore string `json:"bs,omitempty"`
}

// AddEntryResult is returned after an entry is logged.
type AddEntryResult struct {
	Entry      Entry           `json:"entry"`
	Analysis   engine.Analysis `json:"analysis"`
	Triggers   []string        `json:"trigger_foods,omitempty"`
	BPReminder bool            `json:"bp_reminder"`
}

// AnalyzeRequest is the body of a dry-run analysis.
type AnalyzeRequest struct {
	Food string `json:"food"`
}

// AnalyzeResponse wraps an analysis with the trigger foods it contains.
type AnalyzeResponse struct {
	engine.Analysis
	Triggers []string `json:"trigger_foods,omitempty"`
}

// FavoriteRequest is the body of an add-favorite call.
type FavoriteRequest struct {
	EntryID string `json:"entry_id"`
}

// ExportRequest is the body of a report export.
type ExportRequest struct {
	Password string `json:"password"`
	Format   string `json:"format,omitempty"`
}

// ClearResult reports how many entries a clear removed.
type ClearResult struct {
	Deleted int64 `json:"deleted"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string               `json:"status"`
	Version        string               `json:"version"`
	EntryCount     int64                `json:"entry_count"`
	FavoriteCount  int64                `json:"favorite_count"`
	CooldownWindow string               `json:"cooldown_window"`
	Cooldown       engine.CooldownState `json:"cooldown"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	EntryCount    int64 `json:"entry_count"`
	FavoriteCount int64 `json:"favorite_count"`
}
