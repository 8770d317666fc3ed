package complaint

import (
	"time"

	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
)

type Status string

const (
	StatusSubmitted    Status = "Submitted"
	StatusAcknowledged Status = "Acknowledged"
	StatusInProgress   Status = "In Progress"
	StatusResolved     Status = "Resolved"
	StatusRejected     Status = "Rejected"
)

// Statuses is the complete status enum in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusAcknowledged, StatusInProgress, StatusResolved, StatusRejected}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// forward is the position on the main line; Rejected sits beside it.
func (s Status) forward() int {
	switch s {
	case StatusSubmitted:
		return 1
	case StatusAcknowledged:
		return 2
	case StatusInProgress:
		return 3
	case StatusResolved:
		return 4
	default:
		return 0
	}
}

// CanTransition reports whether the forward-only machine allows from -> to. Skipping ahead is
// allowed, Rejected is reachable from every open state and nothing leaves a terminal state.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusRejected {
		return true
	}
	return to.forward() > from.forward()
}

// AllowedPredecessors lists every status from which the forward-only machine reaches to.
// The result is never nil, so an empty slice means no status may move to to.
func AllowedPredecessors(to Status) []Status {
	out := []Status{}
	for _, from := range Statuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

const (
	SubmittedComment      = "Complaint submitted successfully."
	statusChangedTemplate = "Status changed to %q"
	assignedTemplate      = "Complaint assigned to %q"
)

type Complaint struct {
	ID          int64      `json:"id"`
	ComplaintID string     `json:"complaint_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	ImagePath   *string    `json:"image_path,omitempty"`
	UserID      int64      `json:"user_id"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	OwnerName   string     `json:"owner_name,omitempty"`
}

// ComplaintDetail is a complaint joined with its owner's contact data and its timeline.
type ComplaintDetail struct {
	Complaint
	OwnerEmail   string              `json:"owner_email,omitempty"`
	OwnerPhone   string              `json:"owner_phone,omitempty"`
	AssigneeName string              `json:"assignee_name,omitempty"`
	Comments     []*timeline.Comment `json:"comments"`
}

// Assignee is the subset of a user needed to validate an assignment.
type Assignee struct {
	ID   int64
	Name string
	Role string
}

func NewComplaint(ownerID int64, dto CreateComplaintDTO, now time.Time) *Complaint {
	priority := PriorityMedium
	if p, ok := ParsePriority(dto.Priority); ok {
		priority = p
	}

	var imagePath *string
	if dto.ImagePath != "" {
		path := dto.ImagePath
		imagePath = &path
	}

	return &Complaint{
		Title:       dto.Title,
		Category:    dto.Category,
		Description: dto.Description,
		Location:    dto.Location,
		Status:      StatusSubmitted,
		Priority:    priority,
		ImagePath:   imagePath,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ToDataModel(c *Complaint) *complaintDatamodel.Complaint {
	return &complaintDatamodel.Complaint{
		ID:          c.ID,
		ComplaintID: c.ComplaintID,
		Title:       c.Title,
		Category:    c.Category,
		Description: c.Description,
		Location:    c.Location,
		Status:      string(c.Status),
		Priority:    string(c.Priority),
		ImagePath:   c.ImagePath,
		UserID:      c.UserID,
		AssignedTo:  c.AssignedTo,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}

func FromDataModel(c *complaintDatamodel.Complaint) *Complaint {
	return &Complaint{
		ID:          c.ID,
		ComplaintID: c.ComplaintID,
		Title:       c.Title,
		Category:    c.Category,
		Description: c.Description,
		Location:    c.Location,
		Status:      Status(c.Status),
		Priority:    Priority(c.Priority),
		ImagePath:   c.ImagePath,
		UserID:      c.UserID,
		AssignedTo:  c.AssignedTo,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}
