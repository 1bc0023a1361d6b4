package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardvault-price-api/internal/config"
	"cardvault-price-api/internal/feed"
	"cardvault-price-api/internal/handler"
	"cardvault-price-api/internal/ratelimit"
	"cardvault-price-api/internal/repository"
	"cardvault-price-api/internal/router"
	"cardvault-price-api/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting CardVault price API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize price store based on config
	var store repository.Store
	var err error
	switch cfg.Database.Type {
	case "postgres", "postgresql":
		store, err = repository.NewPostgresStore(cfg.Database.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		log.Println("PostgreSQL price store initialized")
	case "mysql":
		store, err = repository.NewMySQLStore(cfg.Database.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		log.Println("MySQL price store initialized")
	default: // sqlite
		store, err = repository.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		log.Println("SQLite price store initialized")
	}
	defer store.Close()

	// Initialize rate limiter (memory by default, Redis for a shared limit)
	var limiter ratelimit.Limiter
	if cfg.Cache.Type == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory limiter: %v", err)
			limiter = ratelimit.NewMemoryLimiter(cfg.ExchangeRate.RateLimit, cfg.ExchangeRate.RateLimitWindow)
		} else {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.ExchangeRate.RateLimit, cfg.ExchangeRate.RateLimitWindow)
			log.Println("Redis rate limiter initialized")
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.ExchangeRate.RateLimit, cfg.ExchangeRate.RateLimitWindow)
		log.Println("Memory rate limiter initialized")
	}
	defer limiter.Close()

	// Initialize feed clients
	tcgClient := feed.NewTCGClient(cfg.Ingest.FeedBaseURL, cfg.Ingest.CategoryID, cfg.Ingest.HTTPTimeout)
	rateClient := feed.NewRateClient(cfg.ExchangeRate.APIURL, cfg.ExchangeRate.HTTPTimeout)

	// Initialize services
	ingestService := service.NewIngestService(tcgClient, store, store, store, service.IngestConfig{
		SetIDs:          cfg.Ingest.SetIDs,
		LookupChunkSize: cfg.Ingest.LookupChunkSize,
		InsertBatchSize: cfg.Ingest.InsertBatchSize,
		SkipIfUnchanged: cfg.Ingest.SkipIfUnchanged,
	})
	retentionService := service.NewRetentionService(store, cfg.Retention.Window)
	exchangeService := service.NewExchangeRateService(rateClient, store, cfg.ExchangeRate.CacheKey)

	// Optional in-process schedulers; external cron via the job endpoints is
	// the primary trigger.
	var schedulers []*service.JobScheduler
	if cfg.Ingest.ScheduleEnabled {
		s := service.NewJobScheduler("price-sync", cfg.Ingest.ScheduleInterval, func(ctx context.Context) error {
			_, err := ingestService.Run(ctx)
			return err
		})
		s.Start()
		schedulers = append(schedulers, s)
	}
	if cfg.Retention.ScheduleEnabled {
		s := service.NewJobScheduler("price-retention", cfg.Retention.ScheduleInterval, func(ctx context.Context) error {
			_, err := retentionService.Run(ctx)
			return err
		})
		s.Start()
		schedulers = append(schedulers, s)
	}

	// Initialize handlers
	healthHandler := handler.New(store, cfg.App.Version)
	jobHandler := handler.NewJobHandler(ingestService, retentionService)
	exchangeHandler := handler.NewExchangeRateHandler(exchangeService, limiter)
	priceHandler := handler.NewPriceHandler(store)
	adminHandler := handler.NewAdminHandler(store, cfg.Database.Type)

	// Create router
	r := router.New(router.Config{
		Handler:             healthHandler,
		JobHandler:          jobHandler,
		ExchangeRateHandler: exchangeHandler,
		PriceHandler:        priceHandler,
		AdminHandler:        adminHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	for _, s := range schedulers {
		s.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
