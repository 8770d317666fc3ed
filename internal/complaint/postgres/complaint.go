package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	userDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/user"
	"github.com/frahmantamala/civic-complaints/internal/identifier"
	"gorm.io/gorm"
)

// ComplaintRepository implements complaint.RepositoryAPI using GORM
type ComplaintRepository struct {
	db  *gorm.DB
	ids *identifier.Generator
}

func NewComplaintRepository(db *gorm.DB, ids *identifier.Generator) complaint.RepositoryAPI {
	return &ComplaintRepository{db: db, ids: ids}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *complaint.Complaint, firstComment string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		publicID, err := r.ids.Next(ctx, tx, c.CreatedAt)
		if err != nil {
			return err
		}
		c.ComplaintID = publicID

		row := complaint.ToDataModel(c)
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return internal.NewConflictError("complaint identifier already issued", internal.ErrCodeDuplicateID).WithCause(err)
			}
			return fmt.Errorf("insert complaint: %w", err)
		}
		c.ID = row.ID

		return insertComment(tx, c.ID, c.UserID, firstComment, c.CreatedAt)
	})
}

func insertComment(tx *gorm.DB, complaintID, userID int64, message string, at time.Time) error {
	comment := &complaintDatamodel.Comment{
		ComplaintID: complaintID,
		UserID:      userID,
		Message:     message,
		CreatedAt:   at,
	}
	if err := tx.Create(comment).Error; err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// complaintRow is a complaint joined with its owner and assignee.
type complaintRow struct {
	complaintDatamodel.Complaint
	OwnerName    string
	OwnerEmail   string
	OwnerPhone   string
	AssigneeName string
}

func (row *complaintRow) toComplaint() *complaint.Complaint {
	c := complaint.FromDataModel(&row.Complaint)
	c.OwnerName = row.OwnerName
	return c
}

func (r *ComplaintRepository) joined(db *gorm.DB) *gorm.DB {
	return db.Table("complaints AS c").
		Select("c.*, " +
			"COALESCE(o.name, '') AS owner_name, COALESCE(o.email, '') AS owner_email, COALESCE(o.phone, '') AS owner_phone, " +
			"COALESCE(a.name, '') AS assignee_name").
		Joins("LEFT JOIN users o ON o.id = c.user_id").
		Joins("LEFT JOIN users a ON a.id = c.assigned_to")
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*complaint.ComplaintDetail, error) {
	var rows []complaintRow
	err := r.joined(r.db.WithContext(ctx)).Where("c.id = ?", id).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get complaint %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, internal.ErrComplaintNotFound
	}

	row := rows[0]
	return &complaint.ComplaintDetail{
		Complaint:    *row.toComplaint(),
		OwnerEmail:   row.OwnerEmail,
		OwnerPhone:   row.OwnerPhone,
		AssigneeName: row.AssigneeName,
	}, nil
}

func (r *ComplaintRepository) List(ctx context.Context, filter complaint.Filter) ([]*complaint.Complaint, error) {
	q := r.joined(r.db.WithContext(ctx))

	if filter.OwnerID != 0 {
		q = q.Where("c.user_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("c.status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("c.category = ?", filter.Category)
	}
	if pattern := filter.SearchPattern(); pattern != "" {
		q = q.Where(
			`(LOWER(c.title) LIKE ? ESCAPE '\' OR LOWER(c.complaint_id) LIKE ? ESCAPE '\' OR LOWER(c.location) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	q = q.Order("c.created_at DESC").Order("c.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []complaintRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}

	complaints := make([]*complaint.Complaint, len(rows))
	for i := range rows {
		complaints[i] = rows[i].toComplaint()
	}
	return complaints, nil
}

func (r *ComplaintRepository) Transition(ctx context.Context, change complaint.StatusChange) (complaint.Status, *complaint.Complaint, error) {
	var (
		from    complaint.Status
		updated *complaint.Complaint
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findComplaint(tx, change.ComplaintID)
		if err != nil {
			return err
		}
		from = complaint.Status(current.Status)

		updates := map[string]interface{}{
			"status":     string(change.To),
			"updated_at": change.At,
		}
		if change.To == complaint.StatusResolved {
			updates["resolved_at"] = change.At
		}

		q := tx.Model(&complaintDatamodel.Complaint{}).Where("id = ?", change.ComplaintID)
		if change.AllowedFrom != nil {
			allowed := make([]string, len(change.AllowedFrom))
			for i, st := range change.AllowedFrom {
				allowed[i] = string(st)
			}
			if len(allowed) == 0 {
				return internal.ErrInvalidTransition
			}
			// compare-and-set: the status read above may be stale by the time we write
			q = q.Where("status IN ?", allowed)
		}

		res := q.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if _, err := findComplaint(tx, change.ComplaintID); err != nil {
				return err
			}
			return internal.ErrInvalidTransition
		}

		if err := insertComment(tx, change.ComplaintID, change.ActorID, change.Comment, change.At); err != nil {
			return err
		}

		row, err := findComplaint(tx, change.ComplaintID)
		if err != nil {
			return err
		}
		updated = complaint.FromDataModel(row)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return from, updated, nil
}

func (r *ComplaintRepository) Assign(ctx context.Context, assignment complaint.Assignment) (*complaint.Complaint, error) {
	var updated *complaint.Complaint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&complaintDatamodel.Complaint{}).
			Where("id = ?", assignment.ComplaintID).
			Updates(map[string]interface{}{
				"assigned_to": assignment.AssigneeID,
				"updated_at":  assignment.At,
			})
		if res.Error != nil {
			return fmt.Errorf("assign complaint: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return internal.ErrComplaintNotFound
		}

		if err := insertComment(tx, assignment.ComplaintID, assignment.ActorID, assignment.Comment, assignment.At); err != nil {
			return err
		}

		row, err := findComplaint(tx, assignment.ComplaintID)
		if err != nil {
			return err
		}
		updated = complaint.FromDataModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ComplaintRepository) Delete(ctx context.Context, id int64) (*complaint.Complaint, error) {
	var deleted *complaint.Complaint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findComplaint(tx, id)
		if err != nil {
			if errors.Is(err, internal.ErrComplaintNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Where("complaint_id = ?", id).Delete(&complaintDatamodel.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&complaintDatamodel.Complaint{}).Error; err != nil {
			return fmt.Errorf("delete complaint: %w", err)
		}

		deleted = complaint.FromDataModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *ComplaintRepository) FindAssignee(ctx context.Context, userID int64) (*complaint.Assignee, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Select("id", "name", "role").Where("id = ?", userID).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	return &complaint.Assignee{ID: u.ID, Name: u.Name, Role: u.Role}, nil
}

func findComplaint(tx *gorm.DB, id int64) (*complaintDatamodel.Complaint, error) {
	var row complaintDatamodel.Complaint
	if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrComplaintNotFound
		}
		return nil, fmt.Errorf("find complaint %d: %w", id, err)
	}
	return &row, nil
}
