package group

import (
	"strings"

	"github.com/helen-caroline/create-atas/pkg/model"
)

// DefaultCategoryName is the bucket for items no keyword claims when the
// table has no keyword-less category of its own.
const DefaultCategoryName = "outros"

// Category is one board section. A category without keywords is the
// default bucket: its items are shown without a header.
type Category struct {
	Name     string
	Display  string
	Keywords []string
}

// HeaderID is the reserved node id of the category header.
func (c Category) HeaderID() string {
	return c.Name + "-header"
}

func (c Category) isDefault() bool {
	return len(c.Keywords) == 0
}

func (c Category) matches(lowerTitle string) bool {
	for _, k := range c.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(lowerTitle, k) {
			return true
		}
	}
	return false
}

// Categories is an ordered category table; order is both the matching
// priority and the display order.
type Categories []Category

// DefaultCategories is the TOTVS client section, then routine ceremonies,
// then everything else.
func DefaultCategories() Categories {
	return Categories{
		{Name: "totvs", Display: "🏢 TOTVS", Keywords: []string{"totvs"}},
		{Name: "rotina", Display: "📅 Rotinas", Keywords: []string{"daily", "planning", "review"}},
		{Name: DefaultCategoryName, Display: "Outros"},
	}
}

func (c Categories) defaultName() string {
	for _, cat := range c {
		if cat.isDefault() {
			return cat.Name
		}
	}
	return DefaultCategoryName
}

// Of returns the name of the first category whose keywords appear in the
// lower-cased title of item.
func (c Categories) Of(item model.WorkItem) string {
	title := strings.ToLower(item.Fields.Title)
	for _, cat := range c {
		if !cat.isDefault() && cat.matches(title) {
			return cat.Name
		}
	}
	return c.defaultName()
}

// Categorize assigns every item to exactly one category, keeping input
// order inside each category.
func (c Categories) Categorize(items []model.WorkItem) map[string][]model.WorkItem {
	out := make(map[string][]model.WorkItem)
	for _, item := range items {
		name := c.Of(item)
		out[name] = append(out[name], item)
	}
	return out
}

// Categorize uses DefaultCategories.
func Categorize(items []model.WorkItem) map[string][]model.WorkItem {
	return DefaultCategories().Categorize(items)
}
