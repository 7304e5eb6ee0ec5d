// Package httpapi exposes the post cache, post mutations and auth over a
// JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/service"
)

// Deps are the components the API serves.
type Deps struct {
	Cache  *postcache.Orchestrator
	Posts  *service.PostService
	Auth   auth.Provider
	Hub    *events.Hub
	Logger *slog.Logger

	CORSAllowedOrigins []string
	// LoginRateLimit caps signup and login attempts per IP per minute.
	LoginRateLimit int
	// UploadDir is served under /uploads/ when set.
	UploadDir string
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.LoginRateLimit <= 0 {
		d.LoginRateLimit = 5
	}
	if len(d.CORSAllowedOrigins) == 0 {
		d.CORSAllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	h := &handlers{
		cache:  d.Cache,
		posts:  d.Posts,
		auth:   d.Auth,
		logger: d.Logger,
	}

	r.Get("/health", h.health)
	r.Handle("/ws", events.NewHandler(d.Hub, d.Logger, nil))
	if d.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}

	authed := requireSession(d.Auth)
	limited := loginLimit(d.LoginRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listPosts)
			r.With(authed).Get("/mine", h.listMyPosts)
			r.Get("/{slug}", h.getPost)
			r.Get("/{slug}/rendered", h.getRenderedPost)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/", h.createPost)
				r.Put("/{id}", h.updatePost)
				r.Delete("/{id}", h.deletePost)
			})
		})

		r.With(authed).Post("/uploads/cover", h.uploadCover)
		r.With(authed).Post("/cache/invalidate", h.invalidateCache)

		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/signup", h.signup)
			r.With(limited).Post("/login", h.login)
			r.With(authed).Post("/logout", h.logout)
			r.With(authed).Get("/session", h.session)
		})
	})

	return r
}
