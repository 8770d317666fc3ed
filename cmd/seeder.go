package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/user"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed demo users, the default categories and a few sample complaints for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		lg := logger.L()

		db, err := initDB(cfg.Database, lg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer closeDB(db, lg)

		ctx := context.Background()
		rdb, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("failed to init redis: %v", err)
		}
		seq, err := newSequencer(cfg.Identifier, rdb)
		if err != nil {
			log.Fatalf("failed to init identifier backend: %v", err)
		}

		svc, err := buildServices(cfg, db, seq, events.Nop{}, lg)
		if err != nil {
			log.Fatalf("failed to build services: %v", err)
		}

		if err := seed(ctx, svc, lg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

type demoUser struct {
	dto   user.RegisterDTO
	admin bool
}

var demoUsers = []demoUser{
	{dto: user.RegisterDTO{Name: "Rahul Sharma", Email: "citizen@demo.com", Password: "citizen123", Phone: "9876543210", Address: "45 Main Road, Sector 12"}},
	{dto: user.RegisterDTO{Name: "Priya Verma", Email: "citizen2@demo.com", Password: "citizen123", Phone: "9876543211", Address: "12 Green Colony, Ward 5"}},
	{dto: user.RegisterDTO{Name: "Admin User", Email: "admin@demo.com", Password: "admin123", Phone: "9000000001"}, admin: true},
}

type demoComplaint struct {
	ownerEmail string
	dto        complaint.CreateComplaintDTO
	moveTo     complaint.Status
	note       string
}

var demoComplaints = []demoComplaint{
	{
		ownerEmail: "citizen@demo.com",
		dto: complaint.CreateComplaintDTO{
			Title:       "Pothole on Main Road",
			Category:    "Roads & Footpaths",
			Description: "There is a large pothole near the bus stop on Main Road causing accidents.",
			Location:    "45 Main Road, Sector 12",
			Priority:    "High",
		},
	},
	{
		ownerEmail: "citizen@demo.com",
		dto: complaint.CreateComplaintDTO{
			Title:       "Streetlight Not Working",
			Category:    "Electricity",
			Description: "The streetlight near the park entrance has been off for a week.",
			Location:    "Park Avenue, Block B",
			Priority:    "Medium",
		},
		moveTo: complaint.StatusInProgress,
		note:   "Our team has been dispatched.",
	},
	{
		ownerEmail: "citizen2@demo.com",
		dto: complaint.CreateComplaintDTO{
			Title:       "Garbage Not Collected",
			Category:    "Waste Management",
			Description: "Garbage has not been collected from our area for 3 days.",
			Location:    "12 Green Colony, Ward 5",
			Priority:    "High",
		},
	},
}

// seed is idempotent for users and categories. Sample complaints are only filed for owners
// that have none yet.
func seed(ctx context.Context, svc *services, lg *slog.Logger) error {
	actors := make(map[string]internal.Actor, len(demoUsers))
	var admin internal.Actor

	for _, du := range demoUsers {
		u, err := svc.Users.GetByEmail(ctx, du.dto.Email)
		switch {
		case err == nil:
			lg.Info("demo user already exists", "email", u.Email)
		case errors.Is(err, internal.ErrUserNotFound):
			if du.admin {
				u, err = svc.Users.CreateAdmin(ctx, du.dto)
			} else {
				u, err = svc.Users.Register(ctx, du.dto)
			}
			if err != nil {
				return err
			}
			lg.Info("seeded demo user", "email", u.Email, "role", u.Role)
		default:
			return err
		}

		actor := internal.Actor{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
		actors[u.Email] = actor
		if actor.IsAdmin() {
			admin = actor
		}
	}

	created, err := svc.Categories.EnsureDefaults(ctx)
	if err != nil {
		return err
	}
	lg.Info("seeded categories", "created", created)

	skip := make(map[string]bool)
	for email, actor := range actors {
		existing, err := svc.Complaints.ListForOwner(ctx, actor.UserID, complaint.Filter{Limit: 1})
		if err != nil {
			return err
		}
		skip[email] = len(existing) > 0
	}

	for _, dc := range demoComplaints {
		if skip[dc.ownerEmail] {
			continue
		}
		c, err := svc.Complaints.CreateComplaint(ctx, actors[dc.ownerEmail], dc.dto)
		if err != nil {
			return err
		}
		if dc.moveTo != "" {
			if _, err := svc.Complaints.TransitionStatus(ctx, admin, c.ID, complaint.TransitionDTO{
				Status: string(dc.moveTo),
				Note:   dc.note,
			}); err != nil {
				return err
			}
		}
		lg.Info("seeded complaint", "complaint_id", c.ComplaintID, "title", c.Title)
	}

	lg.Info("seeding complete")
	return nil
}
