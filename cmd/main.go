package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/config"
	"github.com/Dosada05/competition-system/db"
	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/routes"
	"github.com/Dosada05/competition-system/services"
	"github.com/Dosada05/competition-system/storage"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "competition",
		Usage: "multi-event competition server",
		Action: func(c *cli.Context) error {
			return serve(c.Context, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Action: func(c *cli.Context) error {
					return serve(c.Context, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply the database schema",
				Action: func(c *cli.Context) error {
					return migrate(c.Context, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dbConn, err := db.Connect(cfg.DatabaseURL, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func serve(ctx context.Context, logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("archive_enabled", cfg.ArchiveEnabled()))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(logger, "primary", dbConn)
	logger.Info("database connection established")

	readConn := dbConn
	if cfg.ReadDatabaseURL != "" {
		readConn, err = db.Connect(cfg.ReadDatabaseURL, connectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to read replica: %w", err)
		}
		defer closeDB(logger, "replica", readConn)
		logger.Info("read replica connection established")
	}

	// Архив завершённых сеток (Cloudflare R2)
	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = storage.NewBracketArchive(uploader)
		logger.Info("Cloudflare R2 archive initialized")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Репозитории
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)

	readEventRepo := repositories.NewPostgresEventRepository(readConn)
	readMatchRepo := repositories.NewPostgresMatchRepository(readConn)
	readParticipantRepo := repositories.NewPostgresParticipantRepository(readConn)
	readTeamRepo := repositories.NewPostgresTeamRepository(readConn)

	// Сервисы
	tx := db.NewTransactor(dbConn, logger)
	settings := services.Settings{
		DefaultRating:      cfg.DefaultRating,
		KFactor:            cfg.KFactor,
		DefaultPointsTable: models.PointsTable(cfg.DefaultPointsTable),
	}

	ratingService := services.NewRatingService(teamRepo, ratingRepo, settings)
	bracketService := services.NewBracketService(services.BracketServiceDeps{
		Tx:               tx,
		Events:           eventRepo,
		Matches:          matchRepo,
		Participants:     participantRepo,
		Teams:            teamRepo,
		ReadEvents:       readEventRepo,
		ReadMatches:      readMatchRepo,
		ReadParticipants: readParticipantRepo,
		ReadTeams:        readTeamRepo,
		Ratings:          ratingService,
		Notifier:         wsHub,
		Metrics:          m,
		Settings:         settings,
		Logger:           logger,
	})
	matchService := services.NewMatchService(services.MatchServiceDeps{
		Tx:           tx,
		Events:       eventRepo,
		Matches:      matchRepo,
		Participants: participantRepo,
		Teams:        teamRepo,
		Ratings:      ratingService,
		Notifier:     wsHub,
		Archiver:     archiver,
		Metrics:      m,
		Settings:     settings,
		Logger:       logger,
	})
	eventService := services.NewEventService(services.EventServiceDeps{
		Tx:           tx,
		Events:       eventRepo,
		Matches:      matchRepo,
		Participants: participantRepo,
		Teams:        teamRepo,
		ReadEvents:   readEventRepo,
		Notifier:     wsHub,
		Archiver:     archiver,
		Metrics:      m,
		Settings:     settings,
		Logger:       logger,
	})
	leaderboardService := services.NewLeaderboardService(readEventRepo, readTeamRepo, settings)

	// HTTP
	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Events:    handlers.NewEventHandler(eventService, bracketService),
		Matches:   handlers.NewMatchHandler(matchService),
		Ratings:   handlers.NewRatingHandler(ratingService, leaderboardService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, bracketService, cfg.CORSAllowedOrigins, logger),
	}, routes.Options{
		Authenticator:  middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Gatherer:       registry,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped")
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

func closeDB(logger *slog.Logger, name string, conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.String("name", name), slog.Any("error", err))
		return
	}
	logger.Info("database connection closed", slog.String("name", name))
}
