package identifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	"gorm.io/gorm"
)

// LastIssued returns the sequence of the most recently created complaint for the year, or 0.
func LastIssued(ctx context.Context, db *gorm.DB, prefix string, year int) (int64, error) {
	var row complaintDatamodel.Complaint
	pattern := fmt.Sprintf("%s-%04d-%%", prefix, year)
	err := db.WithContext(ctx).
		Select("complaint_id").
		Where("complaint_id LIKE ?", pattern).
		Order("id DESC").
		Limit(1).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan last identifier: %w", err)
	}

	_, seq, err := Parse(row.ComplaintID)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
