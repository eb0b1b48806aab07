package domain

import (
	"strings"
	"time"
)

// Category is a top-level ticket classification with embedded subcategories.
type Category struct {
	ID            string
	Name          string
	Description   string
	Color         string
	Subcategories []CategorySubcategory
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CategorySubcategory is a subcategory as configured on its category.
type CategorySubcategory struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Color       string              `json:"color"`
	Details     []SubcategoryDetail `json:"details"`
}

// SubcategoryDetail is the finest classification level.
type SubcategoryDetail struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategorySummary is the populated form of a category reference.
type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindSubcategory matches by id first, then case-insensitively by name.
func (c *Category) FindSubcategory(idOrName string) (*CategorySubcategory, bool) {
	for i := range c.Subcategories {
		if c.Subcategories[i].ID == idOrName {
			return &c.Subcategories[i], true
		}
	}
	for i := range c.Subcategories {
		if strings.EqualFold(c.Subcategories[i].Name, strings.TrimSpace(idOrName)) {
			return &c.Subcategories[i], true
		}
	}
	return nil, false
}

// FindDetail matches by id first, then case-insensitively by name.
func (s *CategorySubcategory) FindDetail(idOrName string) (*SubcategoryDetail, bool) {
	for i := range s.Details {
		if s.Details[i].ID == idOrName {
			return &s.Details[i], true
		}
	}
	for i := range s.Details {
		if strings.EqualFold(s.Details[i].Name, strings.TrimSpace(idOrName)) {
			return &s.Details[i], true
		}
	}
	return nil, false
}
