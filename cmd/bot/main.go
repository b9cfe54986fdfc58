package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/blockedby/copygram/internal/api"
	"github.com/blockedby/copygram/internal/bot"
	"github.com/blockedby/copygram/internal/config"
	"github.com/blockedby/copygram/internal/copier"
	"github.com/blockedby/copygram/internal/database"
	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/publisher"
	"github.com/blockedby/copygram/internal/repository"
	"github.com/blockedby/copygram/internal/session"
	"github.com/blockedby/copygram/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting copygram bot")

	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}
	if cfg.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN is required")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Load tier policy
	plans, err := config.LoadPlans(cfg.PlansFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load plans")
	}

	// 5. Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// 6. Initialize repositories
	usersRepo := repository.NewUsersRepository(db.GORM, plans.FreeMessageLimit)
	jobsRepo := repository.NewJobsRepository(db.GORM)

	if cfg.OwnerID != 0 {
		if err := usersRepo.SetOwner(ctx, cfg.OwnerID); err != nil {
			log.Warn().Err(err).Msg("owner flag not persisted")
		}
	}

	// 7. Session store
	sessions, err := session.NewFileStore(cfg.SessionsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}

	// 8. Scratch dir for large downloads
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create scratch dir")
	}

	// 9. Connect to NATS (optional)
	var events copier.Events
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, event publishing disabled")
		} else {
			defer nc.Close()
			events = publisher.NewNATSPublisher(nc)
		}
	}

	// 10. Account manager: pacing follows the user's tier
	rateFor := func(userID int64) float64 {
		stats, err := usersRepo.Stats(context.Background(), userID)
		if err == nil && stats.Privileged() {
			return plans.PrivilegedRPS
		}
		return plans.FreeRPS
	}
	accounts := telegram.NewManager(cfg, sessions, rateFor)
	defer accounts.StopAll()

	login := telegram.NewLoginFlow(cfg)

	// 11. Copy machinery
	service := copier.NewService(usersRepo, cfg.ScratchDir)
	jobs := copier.NewManager(service, jobsRepo, events)

	// 12. Operational HTTP endpoint (optional)
	var apiServer *api.Server
	if cfg.HTTPPort != 0 {
		apiServer = api.NewServer(cfg.HTTPPort, jobsRepo)
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Error().Err(err).Msg("api server error")
			}
		}()
	}

	// 13. Bot surface
	tgBot, err := bot.New(cfg, plans, usersRepo, sessions, accounts, login, jobs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start bot")
	}

	if err := tgBot.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("bot stopped")
	}

	// 14. Shutdown
	log.Info().Msg("shutting down...")
	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = apiServer.Shutdown(shutdownCtx)
	}
	log.Info().Msg("shutdown complete")
}
