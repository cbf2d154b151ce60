// Package moderation rejects food text containing blocked phrases, including
// leetspeak and accented spellings of them.
package moderation

import (
	"strings"

	"github.com/hyperengineering/platewise/internal/food"
)

// DefaultBlocked is the built-in blocked phrase list.
var DefaultBlocked = []string{
	"fuck", "shit", "bitch", "asshole", "cunt", "bastard", "middlefinger",
}

// Filter matches normalized text against normalized blocked phrases.
type Filter struct {
	phrases []string
}

// New builds a Filter. An empty list falls back to DefaultBlocked.
func New(blocked []string) *Filter {
	if len(blocked) == 0 {
		blocked = DefaultBlocked
	}
	f := &Filter{}
	for _, p := range blocked {
		if n := food.NormalizeForFilter(p); n != "" {
			f.phrases = append(f.phrases, n)
		}
	}
	return f
}

// Blocked reports whether text contains any blocked phrase once both sides
// are reduced to lowercase letters and digits.
func (f *Filter) Blocked(text string) bool {
	normalized := food.NormalizeForFilter(text)
	if normalized == "" {
		return false
	}
	for _, p := range f.phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// Phrases returns the normalized blocked phrases.
func (f *Filter) Phrases() []string {
	out := make([]string, len(f.phrases))
	copy(out, f.phrases)
	return out
}
