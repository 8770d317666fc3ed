// Package timeline owns the append-only comment history attached to each complaint.
package timeline

import (
	"strings"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
)

const MaxMessageLength = 5000

type Comment struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaint_id"`
	UserID      int64     `json:"user_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorRole  string    `json:"author_role,omitempty"`
}

type AddCommentDTO struct {
	Message string `json:"message"`
}

// Normalize trims the message and rejects empty or oversized bodies.
func (dto AddCommentDTO) Normalize() (string, error) {
	msg := strings.TrimSpace(dto.Message)
	if msg == "" {
		return "", internal.NewValidationFieldError("message", "message is required", internal.ErrCodeRequired)
	}
	if len(msg) > MaxMessageLength {
		return "", internal.NewValidationFieldError("message", "message is too long", internal.ErrCodeTooLong)
	}
	return msg, nil
}

func ToDataModel(c *Comment) *complaintDatamodel.Comment {
	return &complaintDatamodel.Comment{
		ID:          c.ID,
		ComplaintID: c.ComplaintID,
		UserID:      c.UserID,
		Message:     c.Message,
		CreatedAt:   c.CreatedAt,
	}
}

func FromDataModel(c *complaintDatamodel.Comment) *Comment {
	return &Comment{
		ID:          c.ID,
		ComplaintID: c.ComplaintID,
		UserID:      c.UserID,
		Message:     c.Message,
		CreatedAt:   c.CreatedAt,
	}
}
