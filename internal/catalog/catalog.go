// Package catalog holds the product catalog shown by the bot and edited by the admin page.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Catalog is the full product listing. Category order is display order.
type Catalog struct {
	Categories []Category `json:"categories"`
}

type Category struct {
	Title string    `json:"title"`
	Items []Product `json:"items"`
}

type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FindCategory returns the category whose title matches exactly (case-sensitive).
func FindCategory(c *Catalog, title string) (*Category, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Categories {
		if c.Categories[i].Title == title {
			return &c.Categories[i], true
		}
	}
	return nil, false
}

// Validate checks that category titles and product ids are non-empty and unique.
// Product ids are unique across the whole catalog, not only within a category.
func Validate(c *Catalog) error {
	if c == nil {
		return &ValidationError{Field: "catalog", Reason: "is empty"}
	}
	titles := make(map[string]struct{}, len(c.Categories))
	ids := make(map[string]struct{})
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Title) == "" {
			return &ValidationError{Field: "categories.title", Reason: "must not be empty"}
		}
		if _, dup := titles[cat.Title]; dup {
			return &ValidationError{Field: "categories.title", Reason: fmt.Sprintf("duplicate category %q", cat.Title)}
		}
		titles[cat.Title] = struct{}{}

		for _, p := range cat.Items {
			if p.ID == "" {
				return &ValidationError{Field: "items.id", Reason: fmt.Sprintf("product %q in %q has no id", p.Title, cat.Title)}
			}
			if _, dup := ids[p.ID]; dup {
				return &ValidationError{Field: "items.id", Reason: fmt.Sprintf("duplicate product id %q", p.ID)}
			}
			ids[p.ID] = struct{}{}
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return &Catalog{Categories: []Category{}}
	}
	out := &Catalog{Categories: make([]Category, len(c.Categories))}
	for i, cat := range c.Categories {
		items := make([]Product, len(cat.Items))
		copy(items, cat.Items)
		out.Categories[i] = Category{Title: cat.Title, Items: items}
	}
	return out
}

// AddCategory appends an empty category. The title is trimmed and must be unique.
func (c *Catalog) AddCategory(title string) (*Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if _, ok := FindCategory(c, title); ok {
		return nil, &ValidationError{Field: "title", Reason: fmt.Sprintf("category %q already exists", title)}
	}
	c.Categories = append(c.Categories, Category{Title: title, Items: []Product{}})
	return &c.Categories[len(c.Categories)-1], nil
}

// AddProduct appends a product to the named category and assigns it a fresh id.
// Returns ErrCategoryNotFound if no category matches.
func (c *Catalog) AddProduct(categoryTitle, title, description string, now time.Time) (Product, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Product{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	cat, ok := FindCategory(c, categoryTitle)
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, categoryTitle)
	}

	p := Product{
		ID:          c.newProductID(now),
		Title:       title,
		Description: strings.TrimSpace(description),
	}
	cat.Items = append(cat.Items, p)
	return p, nil
}

// newProductID returns prd_<unix millis>, bumping the millis until the id is unused.
func (c *Catalog) newProductID(now time.Time) string {
	used := make(map[string]struct{})
	for _, cat := range c.Categories {
		for _, p := range cat.Items {
			used[p.ID] = struct{}{}
		}
	}
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("prd_%d", ms)
		if _, taken := used[id]; !taken {
			return id
		}
		ms++
	}
}
