// Package food turns free-text food descriptions into categorized ingredient
// components.
//
// Text is normalized, matched against dish templates and a synonym table,
// decomposed into canonical components, and each component is placed in one
// of three categories (W neutral, S starch/sugar/fruit, P protein) by
// bidirectional substring overlap with curated word lists. The lists are
// configuration: see DefaultRuleset and LoadRuleset.
package food
