package complaint

import (
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/core/common/validation"
)

const (
	maxTitleLength       = 200
	maxCategoryLength    = 100
	maxDescriptionLength = 5000
	maxLocationLength    = 500
	maxNoteLength        = 5000
)

type CreateComplaintDTO struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Priority    string `json:"priority,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
}

// Normalize trims the free-text fields in place.
func (dto *CreateComplaintDTO) Normalize() {
	dto.Title = strings.TrimSpace(dto.Title)
	dto.Category = strings.TrimSpace(dto.Category)
	dto.Description = strings.TrimSpace(dto.Description)
	dto.Location = strings.TrimSpace(dto.Location)
	dto.Priority = strings.TrimSpace(dto.Priority)
	dto.ImagePath = strings.TrimSpace(dto.ImagePath)
}

func (dto CreateComplaintDTO) Validate() error {
	priorities := make([]string, len(Priorities))
	for i, p := range Priorities {
		priorities[i] = string(p)
	}

	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(maxTitleLength)
	v.Field("category", dto.Category).Required().MaxLength(maxCategoryLength)
	v.Field("description", dto.Description).Required().MaxLength(maxDescriptionLength)
	v.Field("location", dto.Location).Required().MaxLength(maxLocationLength)
	v.Field("priority", dto.Priority).OneOf(priorities, internal.ErrCodeInvalidPriority)
	return v.Err()
}

type TransitionDTO struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type AssignDTO struct {
	AssigneeID int64 `json:"assignee_id"`
}

func (dto AssignDTO) Validate() error {
	if dto.AssigneeID <= 0 {
		return internal.NewValidationFieldError("assignee_id", "assignee_id is required", internal.ErrCodeRequired)
	}
	return nil
}

type ListResponse struct {
	Complaints []*Complaint `json:"complaints"`
	Count      int          `json:"count"`
}
