package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeComplaintCreated       = "complaint.created"
	EventTypeComplaintStatusChanged = "complaint.status_changed"
	EventTypeComplaintAssigned      = "complaint.assigned"
	EventTypeComplaintDeleted       = "complaint.deleted"
	EventTypeCommentAdded           = "complaint.comment_added"
)

// ComplaintEventTypes lists the lifecycle events in the order they can occur.
var ComplaintEventTypes = []string{
	EventTypeComplaintCreated,
	EventTypeComplaintStatusChanged,
	EventTypeComplaintAssigned,
	EventTypeCommentAdded,
	EventTypeComplaintDeleted,
}

func newBaseEvent(eventType string, occurredAt time.Time, data map[string]interface{}) BaseEvent {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: occurredAt,
		Data:      data,
	}
}

type ComplaintCreatedEvent struct {
	BaseEvent
	ComplaintID int64  `json:"complaint_id"`
	PublicID    string `json:"public_id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	OwnerID     int64  `json:"owner_id"`
}

func NewComplaintCreatedEvent(complaintID int64, publicID, title, category, priority string, ownerID int64, at time.Time) *ComplaintCreatedEvent {
	return &ComplaintCreatedEvent{
		BaseEvent: newBaseEvent(EventTypeComplaintCreated, at, map[string]interface{}{
			"complaint_id": complaintID,
			"public_id":    publicID,
			"title":        title,
			"category":     category,
			"priority":     priority,
			"owner_id":     ownerID,
		}),
		ComplaintID: complaintID,
		PublicID:    publicID,
		Title:       title,
		Category:    category,
		Priority:    priority,
		OwnerID:     ownerID,
	}
}

type ComplaintStatusChangedEvent struct {
	BaseEvent
	ComplaintID int64  `json:"complaint_id"`
	PublicID    string `json:"public_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorID     int64  `json:"actor_id"`
	OwnerID     int64  `json:"owner_id"`
}

func NewComplaintStatusChangedEvent(complaintID int64, publicID, from, to string, actorID, ownerID int64, at time.Time) *ComplaintStatusChangedEvent {
	return &ComplaintStatusChangedEvent{
		BaseEvent: newBaseEvent(EventTypeComplaintStatusChanged, at, map[string]interface{}{
			"complaint_id": complaintID,
			"public_id":    publicID,
			"from":         from,
			"to":           to,
			"actor_id":     actorID,
			"owner_id":     ownerID,
		}),
		ComplaintID: complaintID,
		PublicID:    publicID,
		From:        from,
		To:          to,
		ActorID:     actorID,
		OwnerID:     ownerID,
	}
}

type ComplaintAssignedEvent struct {
	BaseEvent
	ComplaintID  int64  `json:"complaint_id"`
	PublicID     string `json:"public_id"`
	AssigneeID   int64  `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	ActorID      int64  `json:"actor_id"`
}

func NewComplaintAssignedEvent(complaintID int64, publicID string, assigneeID int64, assigneeName string, actorID int64, at time.Time) *ComplaintAssignedEvent {
	return &ComplaintAssignedEvent{
		BaseEvent: newBaseEvent(EventTypeComplaintAssigned, at, map[string]interface{}{
			"complaint_id":  complaintID,
			"public_id":     publicID,
			"assignee_id":   assigneeID,
			"assignee_name": assigneeName,
			"actor_id":      actorID,
		}),
		ComplaintID:  complaintID,
		PublicID:     publicID,
		AssigneeID:   assigneeID,
		AssigneeName: assigneeName,
		ActorID:      actorID,
	}
}

type CommentAddedEvent struct {
	BaseEvent
	ComplaintID int64  `json:"complaint_id"`
	CommentID   int64  `json:"comment_id"`
	AuthorID    int64  `json:"author_id"`
	AuthorRole  string `json:"author_role"`
}

func NewCommentAddedEvent(complaintID, commentID, authorID int64, authorRole string, at time.Time) *CommentAddedEvent {
	return &CommentAddedEvent{
		BaseEvent: newBaseEvent(EventTypeCommentAdded, at, map[string]interface{}{
			"complaint_id": complaintID,
			"comment_id":   commentID,
			"author_id":    authorID,
			"author_role":  authorRole,
		}),
		ComplaintID: complaintID,
		CommentID:   commentID,
		AuthorID:    authorID,
		AuthorRole:  authorRole,
	}
}

type ComplaintDeletedEvent struct {
	BaseEvent
	ComplaintID int64  `json:"complaint_id"`
	PublicID    string `json:"public_id"`
	ActorID     int64  `json:"actor_id"`
}

func NewComplaintDeletedEvent(complaintID int64, publicID string, actorID int64, at time.Time) *ComplaintDeletedEvent {
	return &ComplaintDeletedEvent{
		BaseEvent: newBaseEvent(EventTypeComplaintDeleted, at, map[string]interface{}{
			"complaint_id": complaintID,
			"public_id":    publicID,
			"actor_id":     actorID,
		}),
		ComplaintID: complaintID,
		PublicID:    publicID,
		ActorID:     actorID,
	}
}
