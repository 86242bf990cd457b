package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/config"
	"github.com/noah-isme/homefix-api/internal/database"
	"github.com/noah-isme/homefix-api/internal/handler"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
	"github.com/noah-isme/homefix-api/internal/router"
	"github.com/noah-isme/homefix-api/internal/service"
	cloud "github.com/noah-isme/homefix-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache and cross-node fan-out")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, continuing without it")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	var storage service.FileStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Enabled() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, uploads are disabled")
	}

	hub := realtime.NewHub(realtime.Options{Redis: redisClient, NATS: natsConn, ChannelBase: cfg.RealtimeChannel}, logger)
	if err := hub.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start realtime hub")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	presenceService := service.NewPresenceService(userRepo, redisClient, hub, cfg.PresenceCacheTTL, logger)
	chatService := service.NewChatService(threadRepo, messageRepo, presenceService, hub, validate, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxSizeMB, logger)
	catalogService := service.NewCatalogService(catalogRepo, redisClient, cfg.CatalogCacheTTL, logger)
	onboardingService := service.NewOnboardingService(redisClient, cfg.OnboardingDraftTTL, catalogRepo, profileRepo, validate, logger)
	profileService := service.NewProfileService(profileRepo, userRepo, uploadService, presenceService, validate, logger)
	requestService := service.NewServiceRequestService(requestRepo, catalogRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler:           handler.NewChatHandler(chatService, logger, cfg.StreamKeepAlive),
		PresenceHandler:       handler.NewPresenceHandler(presenceService, logger, cfg.StreamKeepAlive),
		CatalogHandler:        handler.NewCatalogHandler(catalogService, logger),
		OnboardingHandler:     handler.NewOnboardingHandler(onboardingService, logger),
		ProfileHandler:        handler.NewProfileHandler(profileService, logger),
		ServiceRequestHandler: handler.NewServiceRequestHandler(requestService, logger),
		UploadHandler:         handler.NewUploadHandler(uploadService, logger),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		RealtimeTransport:     realtimeTransport(redisClient, natsConn),
		HealthProbes:          healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func realtimeTransport(redisClient *redis.Client, natsConn *nats.Conn) string {
	transports := make([]string, 0, 2)
	if redisClient != nil {
		transports = append(transports, "redis")
	}
	if natsConn != nil {
		transports = append(transports, "nats")
	}
	return strings.Join(transports, "+")
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats %s", natsConn.Status())
			}
			return nil
		}
	}
	return probes
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
