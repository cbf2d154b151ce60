// Package report builds the shareable health report: a chronological table
// of the diary with a short summary, exported as password-protected HTML or
// plain CSV.
package report

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/types"
)

var (
	// ErrNoEntries indicates there is nothing to export.
	ErrNoEntries = errors.New("no entries to export")
	// ErrEmptyPassword indicates an encrypted export was requested without a password.
	ErrEmptyPassword = errors.New("password is required")
)

// NotRecorded fills optional fields the user left empty.
const NotRecorded = "Not recorded"

// VerdictSafe marks rows whose replayed verdict was safe.
const VerdictSafe = "Safe"

// Row is one diary entry as shown to a reader of the report.
type Row struct {
	Date          string `json:"date"`
	Food          string `json:"food"`
	MealType      string `json:"mealType"`
	Calories      string `json:"calories"`
	BloodPressure string `json:"bloodPressure"`
	FeltSick      string `json:"feltSick"`
	BowelScore    string `json:"bowelScore"`
	Timestamp     string `json:"timestamp"`
	Verdict       string `json:"verdict"`
}

// Summary holds the report's headline numbers.
type Summary struct {
	TotalEntries int    `json:"totalEntries"`
	SickEpisodes int    `json:"sickEpisodes"`
	DateRange    string `json:"dateRange"`
	ExportDate   string `json:"exportDate"`
}

// Report is the full export payload.
type Report struct {
	Rows    []Row   `json:"csvData"`
	Summary Summary `json:"summary"`
}

// Build assembles a report from entries and their replayed analyses, which
// are indexed like entries. Rows are sorted by date, then time logged.
func Build(entries []types.Entry, analyses []engine.Analysis, exportedAt time.Time) (*Report, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := entries[order[a]], entries[order[b]]
		if ea.Date != eb.Date {
			return ea.Date < eb.Date
		}
		return ea.Timestamp.Before(eb.Timestamp)
	})

	rep := &Report{Rows: make([]Row, 0, len(entries))}
	for _, idx := range order {
		e := entries[idx]
		row := Row{
			Date:          e.Date,
			Food:          e.Food,
			MealType:      orDefault(string(e.MealType), string(types.MealUnspecified)),
			Calories:      orDefault(e.Calories, NotRecorded),
			BloodPressure: NotRecorded,
			FeltSick:      "No",
			BowelScore:    orDefault(e.BowelScore, NotRecorded),
			Timestamp:     NotRecorded,
			Verdict:       VerdictSafe,
		}
		if e.SystolicBP != nil {
			row.BloodPressure = strconv.Itoa(*e.SystolicBP)
		}
		if e.Sick {
			row.FeltSick = "Yes"
			rep.Summary.SickEpisodes++
		}
		if !e.Timestamp.IsZero() {
			row.Timestamp = e.Timestamp.Local().Format("2006-01-02 15:04")
		}
		if idx < len(analyses) && !analyses[idx].Combo.Safe && analyses[idx].Combo.Warning != nil {
			row.Verdict = *analyses[idx].Combo.Warning
		}
		rep.Rows = append(rep.Rows, row)
	}

	rep.Summary.TotalEntries = len(entries)
	rep.Summary.DateRange = rep.Rows[0].Date + " to " + rep.Rows[len(rep.Rows)-1].Date
	rep.Summary.ExportDate = exportedAt.Format(types.DateLayout)
	return rep, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
