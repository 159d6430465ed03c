package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/task-management/internal/auth"
	"github.com/frahmantamala/task-management/internal/organization"
	"github.com/frahmantamala/task-management/internal/task"
	"github.com/frahmantamala/task-management/internal/transport/middleware"
	"github.com/frahmantamala/task-management/internal/transport/swagger"
	"github.com/frahmantamala/task-management/internal/user"
	"github.com/go-chi/chi"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	orgHandler *organization.Handler,
	taskHandler *task.Handler,
	userHandler *user.Handler,
	allowedOrigins []string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", authHandler.Register)
			sr.Post("/login", authHandler.Login)
			sr.Post("/me", authHandler.Me)
			sr.Post("/checkPermissions", authHandler.CheckPermissions)
			sr.Post("/switch-organization", authHandler.SwitchOrganization)

			sr.Get("/google", authHandler.GoogleRedirect)
			sr.Get("/google/callback", authHandler.GoogleCallback)
			sr.Post("/google/callback", authHandler.GoogleCallback)
		})

		// Invite acceptance and validation stay public: the caller may
		// not have an account yet (register-first flow).
		r.Route("/organization", func(or chi.Router) {
			or.Post("/", orgHandler.CreateOrganization)
			or.Post("/invite", orgHandler.SendInvites)
			or.Post("/accept-invite/{token}", orgHandler.AcceptInvite)
			or.Get("/validate-invite/{token}", orgHandler.ValidateInvite)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.SessionMiddleware)

			pr.Route("/roles", func(rr chi.Router) {
				rr.Get("/", orgHandler.ListRoles)
				rr.Post("/", orgHandler.CreateRole)
				rr.Put("/{id}", orgHandler.UpdateRole)
			})

			pr.Route("/tasks", func(tr chi.Router) {
				tr.Get("/", taskHandler.ListTasks)
				tr.Post("/", taskHandler.CreateTask)
				tr.Get("/{id}", taskHandler.GetTask)
				tr.Put("/{id}", taskHandler.UpdateTask)
				tr.Delete("/{id}", taskHandler.DeleteTask)

				tr.Get("/{id}/comments", taskHandler.ListComments)
				tr.Post("/{id}/comments", taskHandler.AddComment)
				tr.Delete("/{id}/comments/{commentId}", taskHandler.DeleteComment)
			})

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", userHandler.ListMembers)
				ur.Put("/{id}", userHandler.UpdateMember)
				ur.Delete("/{id}", userHandler.RemoveMember)
			})
		})
	})
}
