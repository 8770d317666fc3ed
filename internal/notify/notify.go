package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-complaints/internal/core/events"
)

// Notification is the transport-neutral form of a lifecycle event.
type Notification struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func FromEvent(e events.Event) Notification {
	data, _ := e.Payload().(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}
	return Notification{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt().UTC(),
		Data:       data,
	}
}

func (n Notification) field(key string) string {
	v, ok := n.Data[key]
	if !ok || v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// Text renders a one-line message for chat sinks.
func (n Notification) Text() string {
	switch n.Type {
	case events.EventTypeComplaintCreated:
		return fmt.Sprintf("New complaint %s: %s (%s, %s priority)",
			n.field("public_id"), n.field("title"), n.field("category"), n.field("priority"))
	case events.EventTypeComplaintStatusChanged:
		return fmt.Sprintf("Complaint %s moved from %s to %s",
			n.field("public_id"), n.field("from"), n.field("to"))
	case events.EventTypeComplaintAssigned:
		return fmt.Sprintf("Complaint %s assigned to %s",
			n.field("public_id"), n.field("assignee_name"))
	case events.EventTypeCommentAdded:
		return fmt.Sprintf("New %s comment on complaint #%s",
			n.field("author_role"), n.field("complaint_id"))
	case events.EventTypeComplaintDeleted:
		return fmt.Sprintf("Complaint %s was deleted", n.field("public_id"))
	default:
		return fmt.Sprintf("Event %s (%s)", n.Type, n.ID)
	}
}

// Sink delivers notifications to one external channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
