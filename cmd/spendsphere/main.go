package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spendsphere/spendsphere-go/internal/config"
	"github.com/spendsphere/spendsphere-go/internal/handler"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/infra/postgres"
	"github.com/spendsphere/spendsphere-go/internal/infra/rabbit"
	"github.com/spendsphere/spendsphere-go/internal/port"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("rabbit_enabled", cfg.RabbitEnabled),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "spendsphere")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Database ---
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	store := postgres.NewStore(db)

	// --- Message bus ---
	var publisher port.Publisher = rabbit.DisabledPublisher{}
	var broker *rabbit.Client
	if cfg.RabbitEnabled {
		broker, err = rabbit.NewClient(cfg.RabbitURL, []string{
			cfg.QueueImage,
			cfg.QueueParsed,
			cfg.QueueAdviceTasks,
			cfg.QueueAdviceResults,
		}, metrics, logger)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer broker.Close()
		publisher = broker
		logger.Info("message bus connected")
	} else {
		logger.Warn("message bus disabled, OCR and advice pipelines unavailable")
	}

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, metrics, logger)
	statsSvc := service.NewStatisticsService(store, logger)
	ocrSvc := service.NewOcrService(store, publisher, ledgerSvc, cfg.QueueImage, metrics, logger)
	adviceSvc := service.NewAdviceService(store, publisher, cfg.QueueAdviceTasks, logger)
	accountSvc := service.NewAccountService(store, logger)
	categorySvc := service.NewCategoryService(store, logger)
	reminderSvc := service.NewReminderService(store, logger)
	userSvc := service.NewUserService(store, logger)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	// --- Consumers ---
	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	g, gCtx := errgroup.WithContext(consumerCtx)
	if broker != nil {
		parsedConsumer := rabbit.NewConsumer(broker, cfg.QueueParsed, ocrSvc.HandleResult, metrics, logger)
		resultsConsumer := rabbit.NewConsumer(broker, cfg.QueueAdviceResults, adviceSvc.HandleResult, metrics, logger)
		g.Go(func() error { return parsedConsumer.Run(gCtx) })
		g.Go(func() error { return resultsConsumer.Run(gCtx) })
	}

	// --- Router ---
	router := handler.NewRouter(&handler.Services{
		Ledger:     ledgerSvc,
		Statistics: statsSvc,
		Ocr:        ocrSvc,
		Advice:     adviceSvc,
		Accounts:   accountSvc,
		Categories: categorySvc,
		Reminders:  reminderSvc,
		Users:      userSvc,
		Auth:       authSvc,
	}, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	stopConsumers()
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Warn("consumers stopped with error", zap.Error(err))
	}

	logger.Info("server stopped")
}
