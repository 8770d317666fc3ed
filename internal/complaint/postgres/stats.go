package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/jmoiron/sqlx"
)

// StatsRepository runs the dashboard aggregates with sqlx over the gorm connection pool.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) complaint.StatsRepositoryAPI {
	return &StatsRepository{db: db}
}

type statusCountRow struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

const (
	countByStatusQuery      = `SELECT status, COUNT(*) AS count FROM complaints GROUP BY status`
	countByStatusOwnerQuery = `SELECT status, COUNT(*) AS count FROM complaints WHERE user_id = ? GROUP BY status`
	countByCategoryQuery    = `SELECT category, COUNT(*) AS count FROM complaints GROUP BY category ORDER BY count DESC, category ASC`
)

func (r *StatsRepository) CountByStatus(ctx context.Context, ownerID int64) (complaint.StatusCounts, error) {
	var (
		rows []statusCountRow
		err  error
	)
	if ownerID != 0 {
		err = r.db.SelectContext(ctx, &rows, r.db.Rebind(countByStatusOwnerQuery), ownerID)
	} else {
		err = r.db.SelectContext(ctx, &rows, countByStatusQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("count complaints by status: %w", err)
	}

	counts := make(complaint.StatusCounts, len(complaint.Statuses))
	for _, st := range complaint.Statuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[complaint.Status(row.Status)] += row.Count
	}
	return counts, nil
}

func (r *StatsRepository) CountByCategory(ctx context.Context) ([]complaint.CategoryCount, error) {
	var rows []complaint.CategoryCount
	if err := r.db.SelectContext(ctx, &rows, countByCategoryQuery); err != nil {
		return nil, fmt.Errorf("count complaints by category: %w", err)
	}
	return rows, nil
}
