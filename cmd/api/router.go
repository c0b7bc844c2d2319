package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/roamplan/roamplan-api/pkg/middleware"
)

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		r.Use(middleware.NewRateLimiter(limiter))
	}

	registerTripRoutes(r, deps)
	registerUtilityRoutes(r, deps)

	// Enable CORS for browser clients (local frontend)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return corsHandler.Handler(r)
}

// registerTripRoutes registers trip planning and discovery routes
func registerTripRoutes(r chi.Router, deps *Dependencies) {
	r.Route("/trips", func(r chi.Router) {
		r.Post("/", deps.TripHandler.CreateTrip)
		r.Get("/", deps.TripHandler.ListTrips)

		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", deps.TripHandler.GetTrip)
			r.Patch("/", deps.TripHandler.RenameTrip)
			r.Delete("/", deps.TripHandler.DeleteTrip)
			r.Post("/share", deps.TripHandler.ShareTrip)

			r.Post("/days", deps.TripHandler.AddDay)
			r.Route("/days/{dayID}", func(r chi.Router) {
				r.Patch("/", deps.TripHandler.RenameDay)
				r.Delete("/", deps.TripHandler.DeleteDay)
				r.Post("/stops", deps.TripHandler.AddStop)
				r.Patch("/stops/{stopID}", deps.TripHandler.UpdateStop)
				r.Delete("/stops/{stopID}", deps.TripHandler.DeleteStop)
				r.Post("/discover", deps.DiscoverHandler.DiscoverDay)
				r.Post("/suggestions/accept", deps.TripHandler.AcceptSuggestion)
			})

			r.Post("/stops/{stopID}/move", deps.TripHandler.MoveStop)
		})
	})

	r.Get("/shared/{token}", deps.TripHandler.ResolveShare)

	deps.Logger.Info("trip routes configured")
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(r chi.Router, deps *Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
