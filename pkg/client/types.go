package client

import (
	"fmt"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the Platewise server address, e.g. http://localhost:8080.
	BaseURL string

	// APIKey is sent as a Bearer token when set.
	APIKey string

	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
}

// Entry is one logged food.
type Entry struct {
	ID         string    `json:"id"`
	Food       string    `json:"food"`
	Date       string    `json:"date"`
	Timestamp  time.Time `json:"timestamp"`
	SystolicBP *int      `json:"bps"`
	Sick       bool      `json:"sick"`
	MealType   string    `json:"meal_type"`
	Calories   string    `json:"calories"`
	BowelScore string    `json:"bs"`
}

// NewEntry is the body of an entry submission.
type NewEntry struct {
	Food       string `json:"food"`
	Date       string `json:"date,omitempty"`
	SystolicBP *int   `json:"bps,omitempty"`
	Sick       bool   `json:"sick"`
	MealType   string `json:"meal_type,omitempty"`
	Calories   string `json:"calories,omitempty"`
	BowelScore string `json:"bs,omitempty"`
}

// Timing describes a cooldown conflict.
type Timing struct {
	Allowed      bool      `json:"allowed"`
	ConflictType string    `json:"conflict_type"`
	LastFoodTime time.Time `json:"last_food_time"`
	WaitUntil    time.Time `json:"wait_until"`
	RemainingMs  int64     `json:"remaining_ms"`
}

// Combo is the verdict on one food.
type Combo struct {
	Safe    bool    `json:"safe"`
	Warning *string `json:"warning"`
	Timing  *Timing `json:"timing_info"`
}

// Analysis is the server's breakdown of a food description.
type Analysis struct {
	Components []string `json:"components"`
	Categories []string `json:"categories"`
	Combo      Combo    `json:"combo"`
	Triggers   []string `json:"trigger_foods,omitempty"`
}

// AddEntryResult is returned after an entry is logged.
type AddEntryResult struct {
	Entry      Entry    `json:"entry"`
	Analysis   Analysis `json:"analysis"`
	Triggers   []string `json:"trigger_foods,omitempty"`
	BPReminder bool     `json:"bp_reminder"`
}

// Favorite is a saved copy of an entry.
type Favorite struct {
	ID         string    `json:"id"`
	EntryID    string    `json:"entry_id"`
	Food       string    `json:"food"`
	Date       string    `json:"date"`
	MealType   string    `json:"meal_type"`
	Calories   string    `json:"calories"`
	SystolicBP *int      `json:"bps"`
	BowelScore string    `json:"bs"`
	CreatedAt  time.Time `json:"created_at"`
}

// Suggestion is one piece of advice.
type Suggestion struct {
	Kind    string `json:"kind"`
	Food    string `json:"food"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Suggestions is the advisor response.
type Suggestions struct {
	Suggestions []Suggestion `json:"suggestions"`
	Summary     string       `json:"summary"`
	Model       string       `json:"model"`
}

// Health is the server health report.
type Health struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	EntryCount     int64  `json:"entry_count"`
	FavoriteCount  int64  `json:"favorite_count"`
	CooldownWindow string `json:"cooldown_window"`
	Cooldown       struct {
		LastS *time.Time `json:"last_s_food_time"`
		LastP *time.Time `json:"last_p_food_time"`
	} `json:"cooldown"`
}

// Report is a downloaded export.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ArchiveLink is a time-limited download URL for an archived report.
type ArchiveLink struct {
	Date      string    `json:"date"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a problem response returned by the server.
type APIError struct {
	Status int          `json:"status"`
	Title  string       `json:"title"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("platewise: %d %s", e.Status, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Errors) > 0 {
		fields := make([]string, len(e.Errors))
		for i, fe := range e.Errors {
			fields[i] = fe.Field + " " + fe.Message
		}
		msg += " (" + strings.Join(fields, "; ") + ")"
	}
	return msg
}
