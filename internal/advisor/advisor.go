// Package advisor turns diary history into plain-language suggestions.
package advisor

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/platewise/internal/food"
	"github.com/hyperengineering/platewise/internal/types"
)

// MinOccurrences is how often a food must appear before it earns a suggestion.
const MinOccurrences = 2

// Suggestion kinds.
const (
	KindAvoid   = "avoid"
	KindSafe    = "safe"
	KindTrigger = "trigger"
)

// Suggestion is one piece of advice about a food.
type Suggestion struct {
	Kind    string `json:"kind"`
	Food    string `json:"food"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Advisor derives suggestions from logged entries.
type Advisor struct {
	rules *food.Ruleset
}

// New creates an Advisor. A nil ruleset uses the defaults.
func New(rules *food.Ruleset) *Advisor {
	if rules == nil {
		rules = food.DefaultRuleset()
	}
	return &Advisor{rules: rules}
}

// Suggest counts entries per lowercase food name. Foods the user felt sick
// after at least twice get an avoid suggestion; foods eaten at least twice
// and never with sickness get a reassurance. Foods containing a trigger food
// get a caution. Within each kind foods keep first-seen order.
func (a *Advisor) Suggest(entries []types.Entry) []Suggestion {
	var order []string
	sick := map[string]int{}
	safe := map[string]int{}
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Food))
		if name == "" {
			continue
		}
		if sick[name] == 0 && safe[name] == 0 {
			order = append(order, name)
		}
		if e.Sick {
			sick[name]++
		} else {
			safe[name]++
		}
	}

	out := []Suggestion{}
	for _, name := range order {
		if n := sick[name]; n >= MinOccurrences {
			out = append(out, Suggestion{
				Kind:    KindAvoid,
				Food:    name,
				Count:   n,
				Message: fmt.Sprintf("You've felt sick after eating %s %d times. Maybe avoid it?", name, n),
			})
		}
	}
	for _, name := range order {
		if n := safe[name]; n >= MinOccurrences && sick[name] == 0 {
			out = append(out, Suggestion{
				Kind:    KindSafe,
				Food:    name,
				Count:   n,
				Message: fmt.Sprintf("You've eaten %s %d times and felt fine.", name, n),
			})
		}
	}
	for _, name := range order {
		if trigger := a.firstTrigger(name); trigger != "" {
			out = append(out, Suggestion{
				Kind:    KindTrigger,
				Food:    name,
				Count:   sick[name] + safe[name],
				Message: fmt.Sprintf("%s contains a trigger food (%s). Consider limiting it.", name, trigger),
			})
		}
	}
	return out
}

func (a *Advisor) firstTrigger(name string) string {
	for _, c := range a.rules.ResolveDish(name) {
		if a.rules.IsTrigger(c) {
			return c
		}
	}
	return ""
}
