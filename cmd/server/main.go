// cmd/server/main.go
// Entry point for the IDPA match scoring API. cmd/ holds the executable; internal/
// holds the packages it wires together.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/trentd187/idpa-match/internal/archive"
	"github.com/trentd187/idpa-match/internal/config"
	"github.com/trentd187/idpa-match/internal/database"
	"github.com/trentd187/idpa-match/internal/events"
	"github.com/trentd187/idpa-match/internal/handlers"
	"github.com/trentd187/idpa-match/internal/live"
	"github.com/trentd187/idpa-match/internal/middleware"
	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/repositories"
	"github.com/trentd187/idpa-match/internal/scheduler"
	"github.com/trentd187/idpa-match/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is empty; token signatures are not verified")
	}

	// ctx is cancelled on SIGINT/SIGTERM and drives every background goroutine.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle:", err)
	}
	defer sqlDB.Close()

	// Running migrations on startup keeps the schema in sync with the binary.
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// --- Score events ---
	// Every committed score goes to the live hub (spectators on this instance) and,
	// when configured, to Redis for everything downstream.
	hub := live.NewHub()
	go hub.Run(ctx)
	sinks := []events.Sink{hub}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Not fatal: score writes must keep working while Redis is down.
			log.Printf("WARNING: redis ping failed: %v", err)
		}
		sinks = append(sinks, events.NewRedisSink(rdb, cfg.ScoreEventsChannel))
		log.Printf("Publishing score events to redis channel %q", cfg.ScoreEventsChannel)
	}

	// --- Results archive ---
	var archiver services.ResultsArchiver
	if cfg.Results.Enabled() {
		a, err := archive.New(ctx, archive.Config{
			Bucket:          cfg.Results.Bucket,
			Endpoint:        cfg.Results.Endpoint,
			Region:          cfg.Results.Region,
			AccessKeyID:     cfg.Results.AccessKeyID,
			SecretAccessKey: cfg.Results.SecretAccessKey,
		})
		if err != nil {
			log.Fatal("Failed to configure results archive:", err)
		}
		archiver = a
	}

	// --- Repositories and services ---
	stageRepo := repositories.NewStageRepository(db)
	scoreRepo := repositories.NewScoreRepository(db)
	registrationRepo := repositories.NewRegistrationRepository(db)
	tournamentRepo := repositories.NewTournamentRepository(db)
	badgeRepo := repositories.NewBadgeRepository(db)

	scoreService := services.NewScoreService(tournamentRepo, stageRepo, scoreRepo, registrationRepo, events.Multi(sinks...))
	rankingService := services.NewRankingService(stageRepo, scoreRepo, tournamentRepo)
	badgeService := services.NewBadgeService(tournamentRepo, scoreRepo, registrationRepo, badgeRepo, archiver)

	sched, err := scheduler.StartBadgeSweep(ctx, badgeService, cfg.BadgeSweepInterval)
	if err != nil {
		log.Fatal("Failed to start badge sweep:", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "IDPA Match API",
	})

	// --- Global middleware ---
	app.Use(recover.New())
	app.Use(logger.New())
	// Allows the mobile app and the spectator page to call the API from another origin.
	app.Use(cors.New())

	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck(sqlDB))
	public := app.Group("/public")
	public.Get("/tournaments/:id/leaderboard", handlers.GetLeaderboard(rankingService))

	// The live feed is public too; it is registered before the authenticated group so
	// the group's Auth middleware never runs for it.
	app.Get("/api/v1/live/tournaments/:id", handlers.LiveTournament(hub))

	// --- Authenticated API routes ---
	api := app.Group("/api/v1", middleware.Auth(cfg, db))
	organizers := middleware.RequireRole(models.UserRoleAdmin, models.UserRoleMatchDirector)

	// Match setup
	api.Get("/tournaments", handlers.GetTournaments(db))
	api.Post("/tournaments", organizers, handlers.CreateTournament(db))
	api.Post("/tournaments/:id/complete", organizers, handlers.CompleteTournament(db))
	api.Post("/tournaments/:id/stages", organizers, handlers.CreateStage(db))
	api.Post("/tournaments/:id/registrations", handlers.CreateRegistration(db))
	api.Post("/registrations/:id/check-in", organizers, handlers.CheckIn(db))

	// Scoring. The score service checks the role again; this just fails fast.
	api.Post("/scores", middleware.RequireScorer(), handlers.SubmitScore(scoreService))
	api.Patch("/scores/:id", middleware.RequireScorer(), handlers.AmendScore(scoreService))

	// Rankings
	api.Get("/stages/:id/rankings", handlers.GetStageRanking(rankingService))
	api.Get("/tournaments/:id/rankings", handlers.GetOverallRanking(rankingService))
	api.Get("/tournaments/:id/rankings/:division", handlers.GetDivisionRanking(rankingService))

	// Badges
	api.Post("/tournaments/:id/badges", organizers, handlers.DeriveBadges(badgeService))

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := sched.Shutdown(); err != nil {
			log.Printf("scheduler shutdown: %v", err)
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
