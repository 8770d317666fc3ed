package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/category"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Defaults are the municipal departments complaints are usually filed against.
var Defaults = []Category{
	{Name: "Roads & Footpaths", Description: "Potholes, broken footpaths and road damage"},
	{Name: "Electricity", Description: "Streetlights and public electrical faults"},
	{Name: "Waste Management", Description: "Missed collections and illegal dumping"},
	{Name: "Water Supply", Description: "Leaks, low pressure and contamination"},
	{Name: "Drainage", Description: "Blocked drains and waterlogging"},
	{Name: "Parks & Public Spaces", Description: "Damaged benches, overgrown parks and playgrounds"},
	{Name: "Other", Description: "Anything that fits no other department"},
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
}

func NewCategory(name, description string) *Category {
	now := time.Now().UTC()
	return &Category{
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.ComplaintCategory {
	return &categoryDatamodel.ComplaintCategory{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.ComplaintCategory) *Category {
	return &Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
