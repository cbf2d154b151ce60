package food

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DishTemplate maps a canonical dish name to its ingredient components.
type DishTemplate struct {
	Name       string   `yaml:"name" json:"name"`
	Components []string `yaml:"components" json:"components"`
}

// Ruleset is the static configuration the resolver and categorizer work from.
// A Ruleset is read-only once built and safe for concurrent use.
type Ruleset struct {
	Lists          WordLists         `yaml:"lists" json:"lists"`
	Synonyms       map[string]string `yaml:"synonyms" json:"synonyms"`
	Dishes         []DishTemplate    `yaml:"dishes" json:"dishes"`
	ImpliedStarch  []string          `yaml:"implied_starch" json:"implied_starch"`
	ImpliedProtein []string          `yaml:"implied_protein" json:"implied_protein"`
}

// DefaultRuleset returns a fresh copy of the built-in ruleset.
func DefaultRuleset() *Ruleset {
	syn := make(map[string]string, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		syn[k] = v
	}
	dishes := make([]DishTemplate, len(defaultDishes))
	for i, d := range defaultDishes {
		dishes[i] = DishTemplate{Name: d.Name, Components: append([]string(nil), d.Components...)}
	}
	return &Ruleset{
		Lists: WordLists{
			W: append([]string(nil), defaultW...),
			S: append([]string(nil), defaultS...),
			P: append([]string(nil), defaultP...),
			T: append([]string(nil), defaultT...),
		},
		Synonyms:       syn,
		Dishes:         dishes,
		ImpliedStarch:  append([]string(nil), defaultImpliedStarch...),
		ImpliedProtein: append([]string(nil), defaultImpliedProtein...),
	}
}

// LoadRuleset reads a YAML override file on top of the defaults.
// Lists, dishes and keyword lists present in the file replace the defaults;
// synonyms are merged key by key.
func LoadRuleset(path string) (*Ruleset, error) {
	rs := DefaultRuleset()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset file: %w", err)
	}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parsing ruleset file: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Validate checks that every dish template is usable.
func (r *Ruleset) Validate() error {
	for i, d := range r.Dishes {
		if Normalize(d.Name) == "" {
			return fmt.Errorf("dish %d: name is required", i)
		}
		if len(d.Components) == 0 {
			return fmt.Errorf("dish %q: at least one component is required", d.Name)
		}
	}
	if len(r.Lists.W)+len(r.Lists.S)+len(r.Lists.P) == 0 {
		return errors.New("ruleset has no category word lists")
	}
	return nil
}

// Synonym returns the canonical word for word, or word itself.
func (r *Ruleset) Synonym(word string) string {
	if canonical, ok := r.Synonyms[word]; ok && canonical != "" {
		return canonical
	}
	return word
}

// Based on "The Eat Out Guide": W + S = OK, W + P = OK, S + P = no.
var defaultW = []string{
	"artichoke", "asparagus", "brussels sprouts", "cabbage", "cauliflower",
	"celery", "cilantro", "eggplant", "green beans", "leafy greens", "lettuce",
	"mayonnaise", "mushroom", "green peppers", "okra", "olive oil", "onions",
	"seasonings", "tomato", "vegetable oil", "vinegar", "wheat grass",
	"yellow mustard", "zucchini", "broccoli", "cucumber", "herbs", "spices",
	"bell peppers", "radish", "spinach", "kale", "arugula", "watercress",
	"parsley", "basil", "oregano", "thyme", "rosemary", "sage", "dill",
	"chives", "scallions", "leeks", "garlic", "ginger", "turmeric",
}

var defaultS = []string{
	"acorn squash", "banana", "beets", "cornbread", "lemon", "lima beans",
	"oatmeal", "tortillas", "bread", "coconut milk", "fruits", "lime",
	"orange peppers", "turnips", "butternut squash", "dates", "grapes",
	"pasta", "rice", "vegetable broth", "avocado", "dried fruit", "honey",
	"pickle relish", "rice milk", "water chestnuts", "carrots", "potato chips",
	"sauerkraut", "wine", "chia", "chocolate", "legumes", "pretzels", "sugar",
	"yams", "potatoes", "sweet potatoes", "corn", "quinoa", "oats", "barley",
	"wheat", "rye", "millet", "buckwheat", "amaranth", "crackers", "cereal",
	"muffins", "bagels", "pancakes", "waffles", "toast", "noodles", "couscous",
	"bulgur", "polenta", "risotto", "pilaf", "beans", "lentils", "chickpeas",
	"black beans", "kidney beans", "pinto beans", "navy beans", "split peas",
	"apple", "orange", "pear", "peach", "plum", "cherry", "strawberry",
	"blueberry", "raspberry", "blackberry", "cranberry", "pineapple", "mango",
	"papaya", "kiwi", "cantaloupe", "watermelon", "honeydew", "grapefruit",
}

var defaultP = []string{
	"eggs", "fish", "pork", "beef", "cheese", "meat broth", "chicken",
	"milk products", "venison", "turkey", "lamb", "duck", "goose", "salmon",
	"tuna", "cod", "halibut", "trout", "sardines", "anchovies", "shrimp",
	"crab", "lobster", "scallops", "mussels", "clams", "oysters", "squid",
	"milk", "yogurt", "cream", "butter", "cottage cheese", "ricotta",
	"mozzarella", "cheddar", "swiss", "parmesan", "feta", "goat cheese",
	"cream cheese", "sour cream", "whey protein", "casein", "protein powder",
	"tofu", "tempeh", "seitan", "nuts", "almonds", "walnuts", "pecans",
	"cashews", "pistachios", "brazil nuts", "hazelnuts", "macadamia nuts",
	"peanuts", "peanut butter", "almond butter", "tahini", "seeds",
	"sunflower seeds", "pumpkin seeds", "sesame seeds", "flax seeds",
}

var defaultT = []string{
	"yogurt", "milk(all)", "nut butter", "seed butter", "cottage cheese", "sour cream",
	"boost shake", "ensure shake", "quinoa", "carbonated drinks(discouraged)",
}

var defaultSynonyms = map[string]string{
	"bun":       "bread",
	"buns":      "bread",
	"roll":      "bread",
	"crust":     "bread",
	"croutons":  "bread",
	"baguette":  "bread",
	"egg":       "eggs",
	"bacon":     "pork",
	"ham":       "pork",
	"sausage":   "pork",
	"pepperoni": "pork",
	"steak":     "beef",
	"patty":     "beef",
	"fries":     "potatoes",
	"potato":    "potatoes",
	"spaghetti": "pasta",
	"macaroni":  "pasta",
	"jelly":     "sugar",
	"jam":       "sugar",
	"syrup":     "sugar",
	"soda":      "sugar",
	"mayo":      "mayonnaise",
	"veggies":   "leafy greens",
	"prawn":     "shrimp",
	"prawns":    "shrimp",
	"yoghurt":   "yogurt",
	"peanut":    "peanuts",
}

// Ordered: more specific dishes precede the shorter names they contain.
var defaultDishes = []DishTemplate{
	{Name: "grilled cheese sandwich", Components: []string{"bread", "cheese"}},
	{Name: "grilled cheese", Components: []string{"bread", "cheese"}},
	{Name: "cheeseburger", Components: []string{"bun", "beef", "cheese"}},
	{Name: "hamburger", Components: []string{"bun", "beef"}},
	{Name: "burger", Components: []string{"bun", "beef"}},
	{Name: "hot dog", Components: []string{"bun", "sausage"}},
	{Name: "pepperoni pizza", Components: []string{"crust", "cheese", "tomato", "pepperoni"}},
	{Name: "pizza", Components: []string{"crust", "cheese", "tomato"}},
	{Name: "spaghetti and meatballs", Components: []string{"spaghetti", "beef", "tomato"}},
	{Name: "spaghetti", Components: []string{"spaghetti", "tomato"}},
	{Name: "mac and cheese", Components: []string{"macaroni", "cheese"}},
	{Name: "chicken sandwich", Components: []string{"bread", "chicken"}},
	{Name: "turkey sandwich", Components: []string{"bread", "turkey"}},
	{Name: "tuna sandwich", Components: []string{"bread", "tuna", "mayo"}},
	{Name: "blt", Components: []string{"bread", "bacon", "lettuce", "tomato"}},
	{Name: "peanut butter and jelly", Components: []string{"bread", "peanut butter", "jelly"}},
	{Name: "chicken caesar salad", Components: []string{"chicken", "lettuce", "cheese", "croutons"}},
	{Name: "caesar salad", Components: []string{"lettuce", "cheese", "croutons"}},
	{Name: "garden salad", Components: []string{"lettuce", "tomato", "cucumber"}},
	{Name: "fried rice", Components: []string{"rice", "egg", "onions"}},
	{Name: "sushi", Components: []string{"rice", "fish"}},
	{Name: "omelette", Components: []string{"egg", "cheese", "onions"}},
	{Name: "steak and potatoes", Components: []string{"steak", "potato"}},
	{Name: "fish and chips", Components: []string{"fish", "fries"}},
	{Name: "tacos", Components: []string{"tortillas", "beef", "cheese"}},
	{Name: "burrito", Components: []string{"tortillas", "rice", "black beans", "beef"}},
	{Name: "bagel with cream cheese", Components: []string{"bagels", "cream cheese"}},
	{Name: "yogurt parfait", Components: []string{"yogurt", "fruits"}},
	{Name: "smoothie", Components: []string{"banana", "strawberry", "yogurt"}},
}

var defaultImpliedStarch = []string{
	"sandwich", "burger", "pizza", "pasta", "wrap", "taco", "burrito", "hoagie", "panini", "toast",
}

var defaultImpliedProtein = []string{
	"chicken", "turkey", "beef", "fish", "burger", "steak", "meatball", "nugget", "sausage", "taco",
}

// impliedProtein maps a matched protein keyword to the component it implies.
func impliedProtein(keyword string) string {
	switch keyword {
	case "chicken", "turkey", "beef", "fish":
		return keyword
	}
	return "meat"
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
