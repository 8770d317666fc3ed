package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	"gorm.io/gorm"
)

type TimelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) timeline.RepositoryAPI {
	return &TimelineRepository{db: db}
}

func (r *TimelineRepository) OwnerOf(ctx context.Context, complaintID int64) (int64, error) {
	var row complaintDatamodel.Complaint
	err := r.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", complaintID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, internal.ErrComplaintNotFound
		}
		return 0, fmt.Errorf("lookup complaint %d: %w", complaintID, err)
	}
	return row.UserID, nil
}

func (r *TimelineRepository) Append(ctx context.Context, comment *timeline.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return appendTx(tx, comment)
	})
}

// appendTx writes the comment and touches the complaint inside an existing transaction.
func appendTx(tx *gorm.DB, comment *timeline.Comment) error {
	res := tx.Model(&complaintDatamodel.Complaint{}).
		Where("id = ?", comment.ComplaintID).
		UpdateColumn("updated_at", comment.CreatedAt)
	if res.Error != nil {
		return fmt.Errorf("touch complaint %d: %w", comment.ComplaintID, res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrComplaintNotFound
	}

	row := timeline.ToDataModel(comment)
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = row.ID
	return nil
}

type commentRow struct {
	ID          int64
	ComplaintID int64
	UserID      int64
	Message     string
	CreatedAt   time.Time
	AuthorName  string
	AuthorRole  string
}

func (r *TimelineRepository) List(ctx context.Context, complaintID int64) ([]*timeline.Comment, error) {
	return listComments(r.db.WithContext(ctx), complaintID)
}

// listComments reads the timeline with author name and role, oldest first.
func listComments(db *gorm.DB, complaintID int64) ([]*timeline.Comment, error) {
	var rows []commentRow
	err := db.Table("comments AS c").
		Select("c.id, c.complaint_id, c.user_id, c.message, c.created_at, COALESCE(u.name, '') AS author_name, COALESCE(u.role, '') AS author_role").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("c.complaint_id = ?", complaintID).
		Order("c.created_at ASC").
		Order("c.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments for %d: %w", complaintID, err)
	}

	comments := make([]*timeline.Comment, len(rows))
	for i, row := range rows {
		comments[i] = &timeline.Comment{
			ID:          row.ID,
			ComplaintID: row.ComplaintID,
			UserID:      row.UserID,
			Message:     row.Message,
			CreatedAt:   row.CreatedAt,
			AuthorName:  row.AuthorName,
			AuthorRole:  row.AuthorRole,
		}
	}
	return comments, nil
}
