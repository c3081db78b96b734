// Package category normalizes free-text blog categories so that the server
// filter and the client filter agree on what matches.
package category

import "strings"

// aliases maps normalized spellings onto a canonical category key. Keys and
// values are already lower-cased and trimmed.
var aliases = map[string]string{
	"games":        "game",
	"gaming":       "game",
	"tech":         "technology",
	"technologies": "technology",
	"dev":          "development",
	"programming":  "development",
	"coding":       "development",
	"sport":        "sports",
	"news":         "news",
	"fitness":      "health",
}

// Aliases returns a copy of the declared alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// Normalize folds a category name to its canonical key: lower-cased, trimmed,
// resolved through the alias table, and otherwise stripped of a single
// trailing plural "s". Words ending in "ss" keep their ending.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	if len(key) > 1 && strings.HasSuffix(key, "s") && !strings.HasSuffix(key, "ss") {
		key = strings.TrimSuffix(key, "s")
		if canonical, ok := aliases[key]; ok {
			return canonical
		}
	}
	return key
}

// Matches reports whether two category names denote the same category.
func Matches(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// Categorized is anything that carries a category name.
type Categorized interface {
	CategoryName() string
}

// Filter returns the items whose category matches name, preserving order.
// The input slice is never modified. An empty name matches nothing.
func Filter[T Categorized](items []T, name string) []T {
	want := Normalize(name)
	out := make([]T, 0)
	if want == "" {
		return out
	}
	for _, item := range items {
		if Normalize(item.CategoryName()) == want {
			out = append(out, item)
		}
	}
	return out
}
