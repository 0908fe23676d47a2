package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gatekeeper-api/internal/config"
	"github.com/noah-isme/gatekeeper-api/internal/database"
	"github.com/noah-isme/gatekeeper-api/internal/gateway"
	"github.com/noah-isme/gatekeeper-api/internal/handler"
	"github.com/noah-isme/gatekeeper-api/internal/middleware"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
	"github.com/noah-isme/gatekeeper-api/internal/router"
	"github.com/noah-isme/gatekeeper-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Application{},
		&models.ReviewClaim{},
		&models.ReviewAction{},
		&models.GuildSettings{},
		&models.ModmailTicket{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	applicationRepo := repository.NewApplicationRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	actionRepo := repository.NewReviewActionRepository(db)
	settingsRepo := repository.NewGuildSettingsRepository(db)
	modmailRepo := repository.NewModmailRepository(db)

	gatewayClient := gateway.NewClient(natsConn, cfg.GatewaySubject, logger)

	auditService := service.NewAuditService(actionRepo, logger)
	claimService := service.NewClaimService(claimRepo, applicationRepo, auditService, cfg.ClaimTTL, logger)
	lookupService := service.NewLookupService(applicationRepo, logger)
	queueService := service.NewQueueService(applicationRepo, claimRepo, redisClient, cfg.QueueCacheTTL, cfg.ClaimTTL, logger)
	cardService := service.NewCardService(applicationRepo, claimService, auditService, gatewayClient, redisClient, cfg.CardCacheTTL, logger)
	effects := service.NewEffectsOrchestrator(service.EffectsDeps{
		Members:  gatewayClient,
		Roles:    gatewayClient,
		DMs:      gatewayClient,
		Tickets:  gatewayClient,
		Cards:    gatewayClient,
		Channels: gatewayClient,
		Modmail:  modmailRepo,
		Audit:    auditService,
	}, cfg.EffectTimeout, logger)
	reviewService := service.NewReviewService(applicationRepo, settingsRepo, claimRepo, auditService, effects, queueService, logger)
	applicationService := service.NewApplicationService(applicationRepo, settingsRepo, auditService, queueService, validate, logger)
	settingsService := service.NewSettingsService(settingsRepo, validate, logger)

	applicationHandler := handler.NewApplicationHandler(applicationService, lookupService, validate, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, claimService, queueService, cardService, auditService, validate, logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ApplicationHandler: applicationHandler,
		ReviewHandler:      reviewHandler,
		SettingsHandler:    settingsHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go reapExpiredClaims(claimService, cfg.ClaimTTL, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func reapExpiredClaims(claims service.ClaimService, ttl time.Duration, logger zerolog.Logger) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		reaped, err := claims.ReapExpired(context.Background())
		if err != nil {
			logger.Warn().Err(err).Msg("failed to reap expired claims")
			continue
		}
		if reaped > 0 {
			logger.Info().Int64("reaped", reaped).Msg("expired claims released")
		}
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
