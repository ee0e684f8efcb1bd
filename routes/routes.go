package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Dosada05/tournament-organizer/handlers"
	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/middleware"
)

const requestTimeout = 30 * time.Second

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Folder     *handlers.FolderHandler
	Match      *handlers.MatchHandler
	Bracket    *handlers.BracketHandler
	Data       *handlers.DataHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Websocket живет вне таймаута и авторизации: браузер не передает заголовки.
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", h.Folder.ListHandler)
			r.Post("/", h.Folder.CreateHandler)
			r.Put("/{folderID}", h.Folder.UpdateHandler)
			r.Delete("/{folderID}", h.Folder.DeleteHandler)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.Team.ListHandler)
			r.Post("/", h.Team.CreateHandler)
			r.Get("/{teamID}", h.Team.GetByIDHandler)
			r.Put("/{teamID}", h.Team.UpdateHandler)
			r.Delete("/{teamID}", h.Team.DeleteHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)
			r.Post("/", h.Tournament.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetByIDHandler)
				r.Patch("/", h.Tournament.UpdateHandler)
				r.Delete("/", h.Tournament.DeleteHandler)
				r.Post("/season/reset", h.Tournament.ResetSeasonHandler)
				r.Post("/groups/draw", h.Tournament.DrawGroupsHandler)

				r.Post("/fixtures", h.Bracket.GenerateFixturesHandler)
				r.Get("/standings", h.Bracket.StandingsHandler)
				r.Get("/qualification", h.Bracket.QualificationHandler)
				r.Post("/qualification/confirm", h.Bracket.ConfirmQualificationHandler)
				r.Post("/knockout", h.Bracket.StartKnockoutHandler)
				r.Post("/advance", h.Bracket.AdvanceHandler)
				r.Get("/bracket", h.Bracket.GetBracketHandler)

				r.Get("/matches", h.Match.ListByTournamentHandler)
				r.With(opts.RateLimiter.Handler).Post("/rounds/simulate", h.Match.SimulateRoundHandler)

				r.With(opts.RateLimiter.Handler).Post("/publish", h.Data.PublishHandler)
				r.Delete("/publish", h.Data.UnpublishHandler)
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Put("/result", h.Match.RecordResultHandler)
			r.With(opts.RateLimiter.Handler).Post("/simulate", h.Match.SimulateHandler)
		})

		r.Get("/export", h.Data.ExportHandler)
		r.Post("/import", h.Data.ImportHandler)
	})
}
