package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/avelarde/devtrack/internal/auth"
	"github.com/avelarde/devtrack/internal/community"
	"github.com/avelarde/devtrack/internal/config"
	"github.com/avelarde/devtrack/internal/httputil"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/post"
	"github.com/avelarde/devtrack/internal/project"
)

// Handlers bundles the page handlers the router wires up.
type Handlers struct {
	Auth      *auth.Handler
	Projects  *project.Handler
	Posts     *post.Handler
	Community *community.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger, static fs.FS) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	r.Get("/health", handleHealth)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Public pages
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/login", http.StatusFound)
	})
	r.Get("/login", h.Auth.ShowLogin)
	r.Post("/login", h.Auth.Login)
	r.Get("/logout", h.Auth.Logout)
	r.Get("/register", h.Auth.ShowRegister)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Get("/verify", h.Auth.Verify)
		r.Post("/resend-verification", h.Auth.ResendVerification)
	})

	// Protected routes (require a session)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireSession)

		r.Get("/home", h.Projects.Home)
		r.Get("/dashboard", h.Posts.Dashboard)
		r.Post("/posts", h.Posts.Create)

		r.Get("/projects", h.Projects.ListPage)
		r.Post("/projects/create", h.Projects.Create)
		r.Get("/projects/edit/{id}", h.Projects.EditForm)
		r.Post("/projects/edit/{id}", h.Projects.Update)
		r.Post("/projects/complete/{id}", h.Projects.Complete)
		r.Post("/projects/delete/{id}", h.Projects.Delete)

		r.Get("/community", h.Community.Directory)

		r.Get("/profile", h.Auth.ShowProfile)
		r.Post("/auth/change-password", h.Auth.ChangePassword)
	})

	return r
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
