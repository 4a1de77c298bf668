package api

import (
	"net/http"

	"github.com/confdesk/confdesk/internal/api/handlers"
	"github.com/confdesk/confdesk/internal/services"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/confdesk/confdesk/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	conferenceService services.ConferenceServiceProvider,
	userService services.UserServiceProvider,
	sessions *session.Manager,
	renderer *web.Renderer,
	minParticipants int,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CountRequests)

	// CORS configuration for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	conferenceHandler := handlers.NewConferenceHandler(conferenceService, renderer, minParticipants)
	authHandler := handlers.NewAuthHandler(userService, sessions, renderer)

	r.Group(func(r chi.Router) {
		r.Use(MethodOverride)
		r.Use(WithSession(sessions))
		r.Use(VerifyCSRF)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/conferences", http.StatusFound)
		})

		r.Get("/login", authHandler.ShowLogin)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Route("/conferences", func(r chi.Router) {
			r.Get("/", conferenceHandler.Index)

			// Mutations require a logged-in user
			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Get("/create", conferenceHandler.New)
				r.Post("/", conferenceHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/edit", conferenceHandler.Edit)
					r.Put("/", conferenceHandler.Update)
					r.Patch("/", conferenceHandler.Update)
					r.Delete("/", conferenceHandler.Delete)
				})
			})
		})
	})

	return r
}
