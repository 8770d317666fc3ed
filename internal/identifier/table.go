package identifier

import (
	"context"
	"fmt"

	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	"gorm.io/gorm"
)

const maxBootstrapAttempts = 3

// TableSequencer keeps the counter in the complaint_sequences table. The increment runs inside
// the caller's transaction, so the year row stays locked until the complaint is committed.
type TableSequencer struct {
	prefix string
}

func NewTableSequencer(prefix string) *TableSequencer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TableSequencer{prefix: prefix}
}

func (s *TableSequencer) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	db := tx.WithContext(ctx)

	for attempt := 0; attempt < maxBootstrapAttempts; attempt++ {
		res := db.Model(&complaintDatamodel.ComplaintSequence{}).
			Where("year = ?", year).
			UpdateColumn("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return 0, fmt.Errorf("increment sequence: %w", res.Error)
		}

		if res.RowsAffected == 1 {
			var row complaintDatamodel.ComplaintSequence
			if err := db.Where("year = ?", year).Take(&row).Error; err != nil {
				return 0, fmt.Errorf("read sequence: %w", err)
			}
			return row.LastValue, nil
		}

		// First identifier of the year: continue from whatever was issued before the counter existed.
		last, err := LastIssued(ctx, db, s.prefix, year)
		if err != nil {
			return 0, err
		}

		next := last + 1
		err = db.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&complaintDatamodel.ComplaintSequence{Year: year, LastValue: next}).Error
		})
		if err == nil {
			return next, nil
		}
		if !isUniqueViolation(err) {
			return 0, fmt.Errorf("bootstrap sequence: %w", err)
		}
		// Another transaction created the row first; increment it instead.
	}

	return 0, fmt.Errorf("sequence for %d: gave up after %d attempts", year, maxBootstrapAttempts)
}
