package http

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blogcristao/internal/handler"
	"blogcristao/internal/httputil"
	"blogcristao/internal/observability"
	authmw "blogcristao/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	SessionHandler *handler.SessionHandler
	PostHandler    *handler.PostHandler
	CommentHandler *handler.CommentHandler
	MediaHandler   *handler.MediaHandler
	UserHandler    *handler.UserHandler
	LiveHandler    *handler.LiveHandler
	CommentLive    *handler.CommentLiveHandler
	Sessions       authmw.SessionVerifier
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if observability.SentryEnabled() {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	optional := authmw.OptionalAuthMiddleware(cfg.Sessions)

	r.Route("/api", func(r chi.Router) {
		// Session cookie exchange
		r.Post("/sessionLogin", cfg.SessionHandler.Login)
		r.Post("/sessionLogout", cfg.SessionHandler.Logout)
		r.With(optional).Get("/session", cfg.SessionHandler.Me)

		// Public reads with optional authentication for likedByUser
		r.Group(func(r chi.Router) {
			r.Use(optional)

			r.Get("/posts", cfg.PostHandler.List)
			r.Get("/posts/{id}", cfg.PostHandler.Get)
			r.Get("/posts/{id}/share", cfg.PostHandler.Share)
			r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
			r.Get("/users/{uid}", cfg.UserHandler.GetProfile)

			r.Get("/feed/live", cfg.LiveHandler.Feed)
			r.Get("/posts/{id}/comments/live", cfg.CommentLive.Feed)

			// Like routes answer 401 "must be logged in" themselves
			r.Post("/posts/{id}/like", cfg.PostHandler.Like)
			r.Post("/posts/{id}/comments/{commentId}/like", cfg.CommentHandler.Like)
		})

		// Protected routes - require authentication
		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthMiddleware(cfg.Sessions))

			r.Post("/posts", cfg.PostHandler.Create)
			r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
			r.Post("/delete", cfg.PostHandler.Delete)
			r.Post("/upload", cfg.MediaHandler.Upload)
		})
	})

	return r
}
