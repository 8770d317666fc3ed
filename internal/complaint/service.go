package complaint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
)

// RepositoryAPI is the persistence port of the lifecycle engine. Every mutating method runs
// in a single transaction together with the timeline comment it writes.
type RepositoryAPI interface {
	// Create allocates the public identifier, inserts the complaint and its first comment.
	Create(ctx context.Context, c *Complaint, firstComment string) error
	GetByID(ctx context.Context, id int64) (*ComplaintDetail, error)
	List(ctx context.Context, filter Filter) ([]*Complaint, error)
	// Transition applies the change and returns the status it replaced.
	Transition(ctx context.Context, change StatusChange) (Status, *Complaint, error)
	Assign(ctx context.Context, assignment Assignment) (*Complaint, error)
	// Delete removes the complaint and its comments. A missing complaint yields (nil, nil).
	Delete(ctx context.Context, id int64) (*Complaint, error)
	FindAssignee(ctx context.Context, userID int64) (*Assignee, error)
}

type StatsRepositoryAPI interface {
	// CountByStatus counts complaints per status, for one owner when ownerID is non-zero.
	CountByStatus(ctx context.Context, ownerID int64) (StatusCounts, error)
	// CountByCategory orders by count descending, then category name.
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
}

type TimelineReader interface {
	ListTimeline(ctx context.Context, complaintID int64) ([]*timeline.Comment, error)
}

type StatusChange struct {
	ComplaintID int64
	To          Status
	// AllowedFrom restricts the update to complaints currently in one of these statuses.
	// Nil means any status.
	AllowedFrom []Status
	Comment     string
	ActorID     int64
	At          time.Time
}

type Assignment struct {
	ComplaintID int64
	AssigneeID  int64
	Comment     string
	ActorID     int64
	At          time.Time
}

type Option func(*Service)

// WithEnforcedTransitions switches from permissive updates to the forward-only machine.
func WithEnforcedTransitions(enforce bool) Option {
	return func(s *Service) {
		s.enforceTransitions = enforce
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	repo               RepositoryAPI
	stats              StatsRepositoryAPI
	timeline           TimelineReader
	publisher          events.Publisher
	logger             *slog.Logger
	enforceTransitions bool
	now                func() time.Time
}

func NewService(repo RepositoryAPI, stats StatsRepositoryAPI, tl TimelineReader, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{
		repo:      repo,
		stats:     stats,
		timeline:  tl,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) EnforcesTransitions() bool {
	return s.enforceTransitions
}

// publish hands the event to the bus. Delivery problems never fail the operation that
// already committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "event_type", e.EventType(), "event_id", e.EventID(), "error", err)
	}
}

func requireAdmin(actor internal.Actor) error {
	if !actor.IsAdmin() {
		return internal.NewForbiddenError("admin role required", internal.ErrCodeAccessDenied)
	}
	return nil
}

func (s *Service) CreateComplaint(ctx context.Context, actor internal.Actor, dto CreateComplaintDTO) (*Complaint, error) {
	if actor.UserID <= 0 {
		return nil, internal.NewValidationFieldError("user_id", "user_id is required", internal.ErrCodeRequired)
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		s.logger.Warn("complaint validation failed", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	c := NewComplaint(actor.UserID, dto, s.now())
	if err := s.repo.Create(ctx, c, SubmittedComment); err != nil {
		s.logger.Error("failed to create complaint", "error", err, "user_id", actor.UserID)
		return nil, err
	}
	c.OwnerName = actor.Name

	s.publish(ctx, events.NewComplaintCreatedEvent(c.ID, c.ComplaintID, c.Title, c.Category, string(c.Priority), c.UserID, c.CreatedAt))

	s.logger.Info("complaint created",
		"complaint_id", c.ComplaintID,
		"id", c.ID,
		"user_id", actor.UserID,
		"priority", c.Priority)

	return c, nil
}

func (s *Service) GetComplaint(ctx context.Context, actor internal.Actor, id int64) (*ComplaintDetail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.CanAccessOwnedBy(detail.UserID) {
		s.logger.Warn("unauthorized access to complaint", "id", id, "user_id", actor.UserID, "owner_id", detail.UserID)
		return nil, internal.ErrAccessDenied
	}

	comments, err := s.timeline.ListTimeline(ctx, id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*timeline.Comment{}
	}
	detail.Comments = comments

	return detail, nil
}

func (s *Service) TransitionStatus(ctx context.Context, actor internal.Actor, id int64, dto TransitionDTO) (*Complaint, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	to, ok := ParseStatus(dto.Status)
	if !ok {
		return nil, internal.NewInvalidStatusError(fmt.Sprintf("invalid status %q", dto.Status))
	}

	note := strings.TrimSpace(dto.Note)
	if len(note) > maxNoteLength {
		return nil, internal.NewValidationFieldError("note", "note is too long", internal.ErrCodeTooLong)
	}
	comment := note
	if comment == "" {
		comment = fmt.Sprintf(statusChangedTemplate, to)
	}

	change := StatusChange{
		ComplaintID: id,
		To:          to,
		Comment:     comment,
		ActorID:     actor.UserID,
		At:          s.now(),
	}
	if s.enforceTransitions {
		change.AllowedFrom = AllowedPredecessors(to)
	}

	from, c, err := s.repo.Transition(ctx, change)
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeConflict) {
			s.logger.Warn("status transition refused", "id", id, "to", to, "user_id", actor.UserID)
		}
		return nil, err
	}

	s.publish(ctx, events.NewComplaintStatusChangedEvent(c.ID, c.ComplaintID, string(from), string(to), actor.UserID, c.UserID, change.At))

	s.logger.Info("complaint status changed",
		"complaint_id", c.ComplaintID,
		"from", from,
		"to", to,
		"user_id", actor.UserID)

	return c, nil
}

func (s *Service) AssignComplaint(ctx context.Context, actor internal.Actor, id int64, dto AssignDTO) (*Complaint, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	assignee, err := s.repo.FindAssignee(ctx, dto.AssigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.Role != internal.RoleAdmin {
		return nil, internal.NewValidationFieldError("assignee_id", "complaints can only be assigned to admins", internal.ErrCodeInvalidAssignee)
	}

	assignment := Assignment{
		ComplaintID: id,
		AssigneeID:  assignee.ID,
		Comment:     fmt.Sprintf(assignedTemplate, assignee.Name),
		ActorID:     actor.UserID,
		At:          s.now(),
	}
	c, err := s.repo.Assign(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewComplaintAssignedEvent(c.ID, c.ComplaintID, assignee.ID, assignee.Name, actor.UserID, assignment.At))

	s.logger.Info("complaint assigned", "complaint_id", c.ComplaintID, "assignee_id", assignee.ID, "user_id", actor.UserID)
	return c, nil
}

// DeleteComplaint is idempotent: deleting an absent complaint succeeds.
func (s *Service) DeleteComplaint(ctx context.Context, actor internal.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete complaint", "error", err, "id", id)
		return err
	}
	if deleted == nil {
		return nil
	}

	s.publish(ctx, events.NewComplaintDeletedEvent(deleted.ID, deleted.ComplaintID, actor.UserID, s.now()))

	s.logger.Info("complaint deleted", "complaint_id", deleted.ComplaintID, "user_id", actor.UserID)
	return nil
}
