package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/Dosada05/tournament-organizer/config"
	"github.com/Dosada05/tournament-organizer/db"
	"github.com/Dosada05/tournament-organizer/handlers"
	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/middleware"
	"github.com/Dosada05/tournament-organizer/realtime"
	"github.com/Dosada05/tournament-organizer/repositories"
	api "github.com/Dosada05/tournament-organizer/routes"
	"github.com/Dosada05/tournament-organizer/services"
	"github.com/Dosada05/tournament-organizer/simulator"
	"github.com/Dosada05/tournament-organizer/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envFile := pflag.String("env-file", ".env", "path to a .env file (optional)")
	migrate := pflag.Bool("migrate", false, "apply the embedded database schema on start")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	// Настройка логгера
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("publishing", cfg.R2.Enabled()))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if *migrate {
		if err := db.Migrate(context.Background(), dbConn); err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	// Публикация снимков в Cloudflare R2 включается только при полной конфигурации.
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		r2, err := storage.NewCloudflareR2Uploader(context.Background(), cfg.R2, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		uploader = r2
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// WebSocket Hub
	hubDone := make(chan struct{})
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(hubDone)
	logger.Info("WebSocket Hub started")

	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	clock := clockwork.NewRealClock()

	// Инициализация репозиториев
	folderRepo := repositories.NewPostgresFolderRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	folderService := services.NewFolderService(folderRepo, clock, services.NewUUID)
	teamService := services.NewTeamService(teamRepo, folderRepo, clock, services.NewUUID, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		teamRepo,
		matchRepo,
		folderRepo,
		txRunner,
		clock,
		services.NewUUID,
		cfg.DefaultSettings,
		logger,
	)
	bracketService := services.NewBracketService(
		tournamentRepo,
		teamRepo,
		matchRepo,
		txRunner,
		wsHub,
		appMetrics,
		clock,
		services.NewUUID,
		logger,
	)
	matchService := services.NewMatchService(
		tournamentRepo,
		teamRepo,
		matchRepo,
		txRunner,
		simulator.NewDefault(),
		wsHub,
		appMetrics,
		clock,
		logger,
	)
	exportService := services.NewExportService(tournamentRepo, teamRepo, matchRepo, txRunner, clock, services.NewUUID, logger)
	publishService := services.NewPublishService(
		tournamentRepo,
		teamRepo,
		matchRepo,
		uploader,
		cfg.PublishWorkers,
		appMetrics,
		clock,
		logger,
	)
	logger.Info("Services initialized")

	// Маршрутизатор
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Team:       handlers.NewTeamHandler(teamService),
		Folder:     handlers.NewFolderHandler(folderService),
		Match:      handlers.NewMatchHandler(matchService),
		Bracket:    handlers.NewBracketHandler(bracketService),
		Data:       handlers.NewDataHandler(exportService, publishService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:        appMetrics,
		Gatherer:       prometheus.DefaultGatherer,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	close(hubDone)
	publishService.Stop()
	logger.Info("pending snapshot uploads finished")

	if exitCode != 0 {
		dbConn.Close()
		os.Exit(exitCode)
	}
	logger.Info("application exited")
}
