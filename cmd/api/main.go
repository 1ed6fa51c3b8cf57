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

	"github.com/nsu-cse/autograder-api/internal/config"
	"github.com/nsu-cse/autograder-api/internal/handler"
	"github.com/nsu-cse/autograder-api/internal/middleware"
	"github.com/nsu-cse/autograder-api/internal/router"
	"github.com/nsu-cse/autograder-api/internal/service"
	"github.com/nsu-cse/autograder-api/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	engineClient, err := engine.New(engine.Config{
		BaseURL: cfg.EngineURL,
		Timeout: cfg.EngineTimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create grading engine client: %v", err)
	}

	aggregator, err := service.NewAggregator(logger)
	if err != nil {
		log.Fatalf("failed to create result aggregator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessions := service.NewSessionStore(cfg.UploadDir, cfg.MaxFileSizeBytes(), cfg.MaxBatchFiles, cfg.ReclaimDelay, logger)
	registry := service.NewResultRegistry(cfg.ResultsDir, cfg.WorkbookAuthor, logger)
	gradingService := service.NewGradingService(sessions, engineClient, aggregator, registry, validate, logger)

	gradeHandler := handler.NewGradeHandler(gradingService, logger)
	downloadHandler := handler.NewDownloadHandler(registry, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Whole multipart batches arrive in one request body.
		BodyLimit: 1024 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradeHandler:    gradeHandler,
		DownloadHandler: downloadHandler,
		EnginePing:      engineClient.Ping,
	})

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("engine_url", cfg.EngineURL).
		Msg("autograder server starting")

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
