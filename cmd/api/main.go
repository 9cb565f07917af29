package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/config"
	"github.com/campusmarket/campus-market-api/internal/database"
	"github.com/campusmarket/campus-market-api/internal/handler"
	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/models"
	"github.com/campusmarket/campus-market-api/internal/observability"
	"github.com/campusmarket/campus-market-api/internal/repository"
	"github.com/campusmarket/campus-market-api/internal/router"
	"github.com/campusmarket/campus-market-api/internal/service"
	cloud "github.com/campusmarket/campus-market-api/pkg/cloudinary"
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

	if err := db.AutoMigrate(&models.Account{}, &models.Listing{}, &models.Offer{}, &models.Message{}, &models.SavedListing{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis and NATS back the cross-node realtime fanout; a single node runs
	// fine without either.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	savedRepo := repository.NewSavedRepository(db)

	runCtx, stopRealtime := context.WithCancel(context.Background())
	defer stopRealtime()

	realtimeService := service.NewRealtimeService(redisClient, cfg.EventChannelBase, natsConn, logger)
	realtimeService.Start(runCtx)

	messagingService := service.NewMessagingService(messageRepo, listingRepo, realtimeService, validate, logger)
	offerService := service.NewOfferService(offerRepo, listingRepo, messagingService, realtimeService, validate, logger)
	listingService := service.NewListingService(listingRepo, savedRepo, realtimeService, validate, logger)
	savedService := service.NewSavedService(savedRepo, listingRepo, logger)
	uploadService := service.NewUploadService(uploader, cfg.UploadMaxSizeMB, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ListingHandler:   handler.NewListingHandler(listingService, validate, logger),
		MessagingHandler: handler.NewMessagingHandler(messagingService, validate, logger),
		OfferHandler:     handler.NewOfferHandler(offerService, validate, logger),
		SavedHandler:     handler.NewSavedHandler(savedService, logger),
		UploadHandler:    handler.NewUploadHandler(uploadService, logger),
		RealtimeHandler:  handler.NewRealtimeHandler(realtimeService, accountRepo, cfg.JWTSecret, logger),
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		VerifiedGate:     middleware.RequireVerified(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cfg, stopRealtime)
}

func waitForShutdown(app *fiber.App, cfg config.Config, stopRealtime context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopRealtime()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
