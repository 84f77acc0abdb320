package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		MaxAge:         300,
	}))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Group(func(r chi.Router) {
			if s.authRateLimit > 0 {
				r.Use(httprate.Limit(s.authRateLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(tooManyRequests)))
			}
			r.Post("/register", s.register)
			r.Post("/login", s.login)
		})
	})

	r.Route("/api/places", func(r chi.Router) {
		r.Get("/user/{userID}", s.listPlacesByUser)
		r.Get("/{placeID}", s.getPlace)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/", s.createPlace)
			r.Patch("/{placeID}", s.editPlace)
			r.Delete("/{placeID}", s.deletePlace)
		})
	})

	r.With(s.authenticate).Post("/api/files/file-upload", s.uploadFile)

	return r
}
