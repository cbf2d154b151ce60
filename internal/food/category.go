package food

import (
	"fmt"
	"strings"
)

// Category classifies a food component for the combination rule.
type Category string

const (
	// CategoryW is neutral and combines with anything.
	CategoryW Category = "W"
	// CategoryS covers starches, sugars and fruit.
	CategoryS Category = "S"
	// CategoryP covers proteins.
	CategoryP Category = "P"
)

// Categories lists the categories in matching priority order.
var Categories = []Category{CategoryW, CategoryS, CategoryP}

// ParseCategory converts "W", "S" or "P" (any case) into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryW:
		return CategoryW, nil
	case CategoryS:
		return CategoryS, nil
	case CategoryP:
		return CategoryP, nil
	}
	return "", fmt.Errorf("unknown food category %q", s)
}

// WordLists holds the phrases that define membership of each category.
// T lists trigger foods; it is advisory and never changes a category.
type WordLists struct {
	W []string `yaml:"w" json:"w"`
	S []string `yaml:"s" json:"s"`
	P []string `yaml:"p" json:"p"`
	T []string `yaml:"t" json:"t"`
}

func (l WordLists) forCategory(c Category) []string {
	switch c {
	case CategoryS:
		return l.S
	case CategoryP:
		return l.P
	default:
		return l.W
	}
}

// Categorize returns the first category, in W, S, P order, whose list has an
// entry that contains word or is contained by it. Unmatched words are W.
func (r *Ruleset) Categorize(word string) Category {
	w := strings.ToLower(strings.TrimSpace(word))
	for _, c := range Categories {
		if overlapsAny(w, r.Lists.forCategory(c)) {
			return c
		}
	}
	return CategoryW
}

// IsTrigger reports whether word overlaps an entry of the trigger list.
func (r *Ruleset) IsTrigger(word string) bool {
	return overlapsAny(strings.ToLower(strings.TrimSpace(word)), r.Lists.T)
}

// listed reports whether word is an exact member of the W, S or P list.
func (r *Ruleset) listed(word string) bool {
	for _, c := range Categories {
		for _, entry := range r.Lists.forCategory(c) {
			if entry == word {
				return true
			}
		}
	}
	return false
}

func overlapsAny(word string, list []string) bool {
	for _, entry := range list {
		e := strings.ToLower(strings.TrimSpace(entry))
		if strings.Contains(word, e) || strings.Contains(e, word) {
			return true
		}
	}
	return false
}
