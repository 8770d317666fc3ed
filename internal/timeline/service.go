package timeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
)

type RepositoryAPI interface {
	// OwnerOf returns the owner of the complaint, or ErrComplaintNotFound.
	OwnerOf(ctx context.Context, complaintID int64) (int64, error)
	// Append inserts the comment and bumps the complaint's updated_at in one transaction.
	Append(ctx context.Context, comment *Comment) error
	List(ctx context.Context, complaintID int64) ([]*Comment, error)
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publish hands the event to the bus. Delivery problems never fail the operation that
// already committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "event_type", e.EventType(), "event_id", e.EventID(), "error", err)
	}
}

// SetClock replaces the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) AddComment(ctx context.Context, actor internal.Actor, complaintID int64, dto AddCommentDTO) (*Comment, error) {
	msg, err := dto.Normalize()
	if err != nil {
		return nil, err
	}

	ownerID, err := s.repo.OwnerOf(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOwnedBy(ownerID) {
		s.logger.Warn("comment denied", "complaint_id", complaintID, "user_id", actor.UserID)
		return nil, internal.ErrAccessDenied
	}

	comment := &Comment{
		ComplaintID: complaintID,
		UserID:      actor.UserID,
		Message:     msg,
		CreatedAt:   s.now(),
		AuthorName:  actor.Name,
		AuthorRole:  actor.Role,
	}
	if err := s.repo.Append(ctx, comment); err != nil {
		s.logger.Error("failed to append comment", "error", err, "complaint_id", complaintID)
		return nil, err
	}

	s.publish(ctx, events.NewCommentAddedEvent(complaintID, comment.ID, actor.UserID, actor.Role, comment.CreatedAt))

	s.logger.Info("comment added", "complaint_id", complaintID, "comment_id", comment.ID, "user_id", actor.UserID)
	return comment, nil
}

// ListTimeline returns the complaint's comments oldest first. No access check.
func (s *Service) ListTimeline(ctx context.Context, complaintID int64) ([]*Comment, error) {
	comments, err := s.repo.List(ctx, complaintID)
	if err != nil {
		s.logger.Error("failed to list timeline", "error", err, "complaint_id", complaintID)
		return nil, err
	}
	return comments, nil
}

// ListForActor is ListTimeline behind the owner-or-admin check.
func (s *Service) ListForActor(ctx context.Context, actor internal.Actor, complaintID int64) ([]*Comment, error) {
	ownerID, err := s.repo.OwnerOf(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOwnedBy(ownerID) {
		return nil, internal.ErrAccessDenied
	}
	return s.ListTimeline(ctx, complaintID)
}
