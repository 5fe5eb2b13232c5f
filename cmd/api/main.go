package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"course-purchase/internal/cache"
	"course-purchase/internal/client"
	"course-purchase/internal/config"
	"course-purchase/internal/metrics"
	"course-purchase/internal/publisher"
	"course-purchase/internal/repository"
	"course-purchase/internal/server"
	"course-purchase/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type outcomePublisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := setupLogger(&cfg.Log)
	log.Info("starting course purchase api", slog.String("env", cfg.Environment.Name))

	metrics.Register()

	discountRate, err := decimal.NewFromString(cfg.Purchase.DiscountRate)
	if err != nil {
		log.Error("invalid discount rate", slog.String("rate", cfg.Purchase.DiscountRate), slog.Any("error", err))
		os.Exit(1)
	}

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		log.Error("failed to init database", slog.Any("error", err))
		os.Exit(1)
	}

	courseRepo := repository.NewCourseRepository(db)
	if err := courseRepo.Seed(context.Background()); err != nil {
		log.Error("failed to seed catalog", slog.Any("error", err))
		os.Exit(1)
	}

	var courseCache cache.CourseCache
	rdb, err := client.InitRedisClient(context.Background(), &cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, catalog reads go to the database", slog.Any("error", err))
	} else if rdb != nil {
		defer rdb.Close()
		courseCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	var pub outcomePublisher = publisher.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		pub = publisher.NewKafkaPublisher(&cfg.Kafka)
	}
	defer pub.Close()

	checkoutPage := client.NewCheckoutPage(&cfg.Razorpay, log)
	scriptLoader := client.NewGatewayScriptLoader(checkoutPage, cfg.Razorpay.ScriptURL, cfg.Razorpay.ScriptLoadLimit)
	orderClient := client.NewOrderClient(&cfg.Backend)
	gatewayAdapter := client.NewPaymentGatewayAdapter(&cfg.Razorpay)

	catalogService := service.NewCatalogService(courseRepo, courseCache, log)
	purchaseService := service.NewPurchaseService(
		catalogService,
		service.NewPricingCalculator(discountRate),
		scriptLoader,
		orderClient,
		gatewayAdapter,
		pub,
		service.PurchaseSettings{
			SessionTTL:    cfg.Purchase.SessionTTL,
			VerifyTimeout: cfg.Purchase.VerifyTimeout,
		},
		log,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(purchaseService, catalogService, checkoutPage, cfg, log)

	log.Info("starting HTTP server", slog.String("address", serverAddr))
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigChan:
		log.Info("signal received, starting graceful shutdown")
	case err := <-errChan:
		log.Error("HTTP server error", slog.Any("error", err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", slog.Any("error", err))
	}

	log.Info("server stopped")
}

func setupLogger(logCfg *config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logCfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(logCfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
