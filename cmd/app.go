package cmd

import (
	"fmt"
	"log/slog"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/auth"
	authPostgres "github.com/frahmantamala/civic-complaints/internal/auth/postgres"
	"github.com/frahmantamala/civic-complaints/internal/category"
	categoryPostgres "github.com/frahmantamala/civic-complaints/internal/category/postgres"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	complaintPostgres "github.com/frahmantamala/civic-complaints/internal/complaint/postgres"
	"github.com/frahmantamala/civic-complaints/internal/core/database"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/identifier"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	timelinePostgres "github.com/frahmantamala/civic-complaints/internal/timeline/postgres"
	"github.com/frahmantamala/civic-complaints/internal/user"
	userPostgres "github.com/frahmantamala/civic-complaints/internal/user/postgres"
	"gorm.io/gorm"
)

// services holds the core components shared by the server and the seeder.
type services struct {
	Users      *user.Service
	Auth       *auth.Service
	Categories *category.Service
	Complaints *complaint.Service
	Timeline   *timeline.Service
}

func buildServices(cfg *internal.Config, db *gorm.DB, seq identifier.Sequencer, publisher events.Publisher, logger *slog.Logger) (*services, error) {
	sqlxDB, err := database.SQLX(db)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap database for sqlx: %w", err)
	}

	ids := identifier.NewGenerator(cfg.Identifier.Prefix, seq)

	timelineService := timeline.NewService(timelinePostgres.NewTimelineRepository(db), publisher, logger)
	complaintService := complaint.NewService(
		complaintPostgres.NewComplaintRepository(db, ids),
		complaintPostgres.NewStatsRepository(sqlxDB),
		timelineService,
		publisher,
		logger,
		complaint.WithEnforcedTransitions(cfg.Lifecycle.EnforceTransitions),
	)

	return &services{
		Users:      user.NewService(userPostgres.NewUserRepository(db), logger, cfg.Security.BCryptCost),
		Auth:       auth.NewService(authPostgres.NewRepository(db), auth.NewJWTTokenGenerator(cfg.Security), logger),
		Categories: category.NewService(categoryPostgres.NewCategoryRepository(db), logger),
		Complaints: complaintService,
		Timeline:   timelineService,
	}, nil
}
