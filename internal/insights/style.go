package insights

import "strings"

// CategoryDef describes a known spending category.
type CategoryDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Categories are the categories the impulse classifier knows a risk for,
// plus a catch-all.
var Categories = []CategoryDef{
	{"groceries", "Groceries", "🛒", "#34d399"},
	{"dining", "Dining", "🍽️", "#60a5fa"},
	{"shopping", "Shopping", "🛍️", "#f472b6"},
	{"entertainment", "Entertainment", "🎮", "#a78bfa"},
	{"transport", "Transport", "🚌", "#fbbf24"},
	{"travel", "Travel", "✈️", "#38bdf8"},
	{"utilities", "Utilities", "💡", "#facc15"},
	{"health", "Health", "💊", "#4ade80"},
	{"other", "Other", "📦", "#94a3b8"},
}

// CategoryStyle is how a category is drawn.
type CategoryStyle struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// StyleFor returns the style of a category, falling back to Other.
func StyleFor(category string) CategoryStyle {
	id := strings.ToLower(strings.TrimSpace(category))
	for _, c := range Categories {
		if c.ID == id {
			return CategoryStyle{Icon: c.Icon, Color: c.Color}
		}
	}
	return CategoryStyle{Icon: "📦", Color: "#94a3b8"}
}
