package food

import "strings"

// ResolveDish decomposes free-text food into canonical ingredient components.
// The result is never empty, has no duplicates, and keeps first-seen order.
func (r *Ruleset) ResolveDish(text string) []string {
	normalized := Normalize(text)
	tokens := words(normalized)

	if components, ok := r.matchExactDish(normalized); ok {
		return dedupe(components)
	}
	if components, ok := r.matchPartialDish(tokens); ok {
		return dedupe(components)
	}

	var components []string
	for _, word := range tokens {
		expanded := r.Synonym(word)
		if expanded != word || r.listed(word) {
			components = append(components, expanded)
		}
	}

	components = r.inferImplied(normalized, components)

	if len(components) == 0 {
		return []string{strings.ToLower(text)}
	}
	return dedupe(components)
}

// CategorizeAll returns the category of every component, in order.
func (r *Ruleset) CategorizeAll(components []string) []Category {
	out := make([]Category, len(components))
	for i, c := range components {
		out[i] = r.Categorize(c)
	}
	return out
}

func (r *Ruleset) matchExactDish(normalized string) ([]string, bool) {
	for _, d := range r.Dishes {
		if Normalize(d.Name) == normalized {
			return r.expand(d.Components), true
		}
	}
	return nil, false
}

// matchPartialDish finds the first template whose name words all occur as
// whole words of the input. A one-word template only matches multi-word input.
func (r *Ruleset) matchPartialDish(tokens []string) ([]string, bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}

	for _, d := range r.Dishes {
		keyWords := words(Normalize(d.Name))
		if len(keyWords) == 0 {
			continue
		}
		if len(keyWords) == 1 && len(tokens) < 2 {
			continue
		}
		if containsAllWords(present, keyWords) {
			return r.expand(d.Components), true
		}
	}
	return nil, false
}

func (r *Ruleset) inferImplied(normalized string, components []string) []string {
	if kw := firstContained(normalized, r.ImpliedStarch); kw != "" && !r.anyInCategory(components, CategoryS) {
		components = append(components, "bread")
	}
	if kw := firstContained(normalized, r.ImpliedProtein); kw != "" && !r.anyInCategory(components, CategoryP) {
		components = append(components, impliedProtein(kw))
	}
	return components
}

func (r *Ruleset) anyInCategory(components []string, c Category) bool {
	for _, comp := range components {
		if r.Categorize(comp) == c {
			return true
		}
	}
	return false
}

func (r *Ruleset) expand(components []string) []string {
	out := make([]string, len(components))
	for i, c := range components {
		out[i] = r.Synonym(c)
	}
	return out
}

func containsAllWords(present map[string]struct{}, keyWords []string) bool {
	for _, w := range keyWords {
		if _, ok := present[w]; !ok {
			return false
		}
	}
	return true
}

func firstContained(normalized string, keywords []string) string {
	if normalized == "" {
		return ""
	}
	for _, kw := range lowerAll(keywords) {
		if kw != "" && strings.Contains(normalized, kw) {
			return kw
		}
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
