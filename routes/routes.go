package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/middleware"
)

type Handlers struct {
	Events    *handlers.EventHandler
	Matches   *handlers.MatchHandler
	Ratings   *handlers.RatingHandler
	WebSocket *handlers.WebSocketHandler
}

type Options struct {
	Authenticator  *middleware.Authenticator
	AllowedOrigins []string
	// Gatherer serves /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Get("/ws/events/{eventID}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(opts.Authenticator.Authenticate)

		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", h.Events.GetEventHandler)
			r.Get("/bracket", h.Events.GetBracketHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/bracket", h.Events.GenerateBracketHandler)
				r.Delete("/bracket", h.Events.ResetBracketHandler)
				r.Post("/start", h.Events.StartEventHandler)
				r.Post("/complete", h.Events.CompleteEventHandler)
				r.Post("/combined", h.Events.CreateCombinedMatchHandler)
				r.Post("/standings", h.Events.RecordStandingsHandler)
			})
		})

		r.With(middleware.RequireAdmin).Patch("/matches/{matchID}", h.Matches.UpdateMatchHandler)

		r.Get("/teams/{teamID}/rating", h.Ratings.TeamRatingHandler)
		r.Get("/players/{playerID}/trend", h.Ratings.PlayerTrendHandler)
		r.Get("/seasons/{seasonID}/leaderboard", h.Ratings.LeaderboardHandler)
	})
}
