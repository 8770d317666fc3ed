package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/civic-complaints/internal/auth"
	"github.com/frahmantamala/civic-complaints/internal/category"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	"github.com/frahmantamala/civic-complaints/internal/transport/middleware"
	"github.com/frahmantamala/civic-complaints/internal/user"
	"github.com/go-chi/chi"
)

// Routes bundles everything the API router mounts. Nil handlers leave their routes out.
type Routes struct {
	Health    *HealthHandler
	Auth      *auth.Handler
	User      *user.Handler
	Category  *category.Handler
	Complaint *complaint.Handler
	Timeline  *timeline.Handler

	Resolver       middleware.ActorResolver
	AllowedOrigins []string
	OpenAPI        http.Handler
	Swagger        http.Handler
	UploadsPath    string
	Uploads        http.Handler
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	if routes.Health == nil {
		routes.Health = NewHealthHandler()
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(routes.AllowedOrigins))

	if routes.OpenAPI != nil {
		router.Handle("/openapi.yml", routes.OpenAPI)
	}
	if routes.Swagger != nil {
		router.Handle("/swagger/*", routes.Swagger)
	}
	if routes.Uploads != nil && routes.UploadsPath != "" {
		router.Handle(routes.UploadsPath+"/*", routes.Uploads)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", routes.Health.healthCheckHandler)
		r.Get("/ping", routes.Health.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			if routes.User != nil {
				sr.Post("/register", routes.User.Register)
			}
			if routes.Auth != nil {
				sr.Post("/login", routes.Auth.Login)
				sr.Post("/refresh", routes.Auth.RefreshToken)
				sr.Post("/logout", routes.Auth.Logout)
			}
		})

		if routes.Category != nil {
			r.Get("/categories", routes.Category.GetCategories)
		}

		if routes.Resolver == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(routes.Resolver, logger))

			if routes.User != nil {
				pr.Get("/users/me", routes.User.GetCurrentUser)
			}

			if routes.Category != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(middleware.RequireAdmin(logger))
					ar.Post("/categories", routes.Category.CreateCategory)
					ar.Delete("/categories/{id}", routes.Category.DeactivateCategory)
				})
			}

			if routes.Complaint != nil {
				ch := routes.Complaint
				pr.Get("/users/{id}/complaints", ch.ListUserComplaints)
				pr.Get("/stats/mine", ch.GetMyStats)

				pr.Route("/complaints", func(cr chi.Router) {
					cr.Post("/", ch.CreateComplaint)
					cr.Get("/mine", ch.ListMyComplaints)
					cr.Get("/{id}", ch.GetComplaint)

					if routes.Timeline != nil {
						cr.Get("/{id}/comments", routes.Timeline.ListComments)
						cr.Post("/{id}/comments", routes.Timeline.AddComment)
					}

					cr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireAdmin(logger))
						ar.Get("/", ch.ListComplaints)
						ar.Patch("/{id}/status", ch.UpdateStatus)
						ar.Patch("/{id}/assignee", ch.AssignComplaint)
						ar.Delete("/{id}", ch.DeleteComplaint)
					})
				})

				pr.Group(func(ar chi.Router) {
					ar.Use(middleware.RequireAdmin(logger))
					ar.Get("/stats", ch.GetStats)
				})
			}
		})
	})
}
