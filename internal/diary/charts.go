package diary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/food"
	"github.com/hyperengineering/platewise/internal/types"
)

// Time-of-day periods used by the charts.
const (
	PeriodMorning   = "Morning"
	PeriodAfternoon = "Afternoon"
	PeriodEvening   = "Evening"
)

// Periods lists the chart periods in display order.
var Periods = []string{PeriodMorning, PeriodAfternoon, PeriodEvening}

// BPPoint is one systolic reading.
type BPPoint struct {
	Date     string `json:"date"`
	Systolic int    `json:"systolic"`
}

// ChartFood is an entry as shown in a chart tooltip.
type ChartFood struct {
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Sick      bool           `json:"sick"`
	MealType  types.MealType `json:"meal_type"`
}

// PeriodFoods groups one period's foods by category.
type PeriodFoods struct {
	Period    string      `json:"period"`
	W         []ChartFood `json:"w"`
	S         []ChartFood `json:"s"`
	P         []ChartFood `json:"p"`
	Conflicts []ChartFood `json:"conflicts"`
}

// PeriodCounts is the number of W, S and P entries in one period.
type PeriodCounts struct {
	Period string `json:"period"`
	W      int    `json:"w"`
	S      int    `json:"s"`
	P      int    `json:"p"`
}

// Charts is the data behind the diary's charts.
type Charts struct {
	BloodPressure []BPPoint      `json:"blood_pressure"`
	Day           string         `json:"day"`
	Daily         []PeriodFoods  `json:"daily_combination"`
	TimeOfDay     []PeriodCounts `json:"category_by_time_of_day"`
}

// BPSeries returns the systolic readings in ascending date order.
func BPSeries(entries []types.Entry) []BPPoint {
	points := []BPPoint{}
	for _, e := range entries {
		if e.SystolicBP != nil {
			points = append(points, BPPoint{Date: e.Date, Systolic: *e.SystolicBP})
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// MealPeriod maps a meal type to its chart period. Unmapped meals count as
// afternoon.
func MealPeriod(m types.MealType) string {
	switch m {
	case types.MealBreakfast:
		return PeriodMorning
	case types.MealDinner, types.MealDessert:
		return PeriodEvening
	default:
		return PeriodAfternoon
	}
}

// TimeOfDay maps a clock time to its chart period.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return PeriodMorning
	case h < 17:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// DailyCombination groups the entries logged on day by meal period. A food
// is listed under every distinct category among its components, and under
// Conflicts when its replayed verdict was unsafe. analyses is indexed like
// entries.
func DailyCombination(entries []types.Entry, analyses []engine.Analysis, day string) []PeriodFoods {
	byPeriod := make(map[string]*PeriodFoods, len(Periods))
	out := make([]PeriodFoods, len(Periods))
	for i, p := range Periods {
		out[i] = PeriodFoods{Period: p, W: []ChartFood{}, S: []ChartFood{}, P: []ChartFood{}, Conflicts: []ChartFood{}}
		byPeriod[p] = &out[i]
	}

	for i, e := range entries {
		if e.Date != day || i >= len(analyses) {
			continue
		}
		pf := byPeriod[MealPeriod(e.MealType)]
		cf := ChartFood{Name: e.Food, Timestamp: e.Timestamp, Sick: e.Sick, MealType: e.MealType}
		for _, c := range distinct(analyses[i].Categories) {
			switch c {
			case food.CategoryW:
				pf.W = append(pf.W, cf)
			case food.CategoryS:
				pf.S = append(pf.S, cf)
			case food.CategoryP:
				pf.P = append(pf.P, cf)
			}
		}
		if !analyses[i].Combo.Safe {
			pf.Conflicts = append(pf.Conflicts, cf)
		}
	}
	return out
}

// CategoryByTimeOfDay counts each entry once per distinct category, bucketed
// by the local time it was logged.
func CategoryByTimeOfDay(entries []types.Entry, analyses []engine.Analysis, loc *time.Location) []PeriodCounts {
	if loc == nil {
		loc = time.Local
	}
	byPeriod := make(map[string]*PeriodCounts, len(Periods))
	out := make([]PeriodCounts, len(Periods))
	for i, p := range Periods {
		out[i] = PeriodCounts{Period: p}
		byPeriod[p] = &out[i]
	}

	for i, e := range entries {
		if i >= len(analyses) {
			break
		}
		pc := byPeriod[TimeOfDay(e.Timestamp.In(loc))]
		for _, c := range distinct(analyses[i].Categories) {
			switch c {
			case food.CategoryW:
				pc.W++
			case food.CategoryS:
				pc.S++
			case food.CategoryP:
				pc.P++
			}
		}
	}
	return out
}

// Charts builds every chart from the full diary. day selects the daily
// combination chart and defaults to today.
func (s *Service) Charts(ctx context.Context, day string) (*Charts, error) {
	entries, err := s.store.ListEntries(ctx, types.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if day == "" {
		day = s.now().Format(types.DateLayout)
	}

	analyses := s.Replay(entries)
	return &Charts{
		BloodPressure: BPSeries(entries),
		Day:           day,
		Daily:         DailyCombination(entries, analyses, day),
		TimeOfDay:     CategoryByTimeOfDay(entries, analyses, time.Local),
	}, nil
}

// Replay re-derives the verdict of every entry in logging order. The result
// is indexed like entries.
func (s *Service) Replay(entries []types.Entry) []engine.Analysis {
	history := make([]engine.HistoricalEntry, len(entries))
	for i, e := range entries {
		history[i] = engine.HistoricalEntry{Food: e.Food, At: e.Timestamp}
	}
	return engine.Replay(s.engine.Rules(), history, s.engine.Window())
}

func distinct(categories []food.Category) []food.Category {
	var out []food.Category
	seen := make(map[food.Category]bool, 3)
	for _, c := range categories {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
