package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamedict/internal/api"
	"gamedict/internal/api/handlers"
	"gamedict/internal/auth"
	"gamedict/internal/config"
	"gamedict/internal/jobs"
	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/service"
	"gamedict/internal/websocket"
	"gamedict/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// documentStore is what the server needs from a store backend
type documentStore interface {
	repository.Store
	worker.EventSink
}

// keyValue is what the server needs from the version/revocation backend
type keyValue interface {
	service.Notifier
	websocket.VersionSource
	auth.Revoker
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, kv, err := initBackends(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Vote events are persisted off the request path
	workerPool := worker.NewWorkerPool(cfg.Worker.Count, cfg.Worker.QueueSize, store)
	workerPool.Start()

	// Initialize WebSocket Hub
	hub := websocket.NewHub(kv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Services
	termService := service.NewTermService(store, kv)
	gameService := service.NewGameService(store, kv)
	voteService := service.NewVoteService(store, kv, workerPool, cfg.Voting.AllowSelfVote)
	accountService := service.NewAccountService(store, service.NewProfanityFilter(), bcrypt.DefaultCost)

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, kv)
	sessions := auth.NewSessions(tokens, store, auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	})

	// Integrity reconciler, off unless an interval is configured
	var reconciler *jobs.Reconciler
	if cfg.Reconcile.Interval > 0 {
		reconciler = jobs.NewReconciler(store, jobs.ReconcilerConfig{
			Interval: cfg.Reconcile.Interval,
			Repair:   cfg.Reconcile.Repair,
		})
		if err := reconciler.Start(ctx); err != nil {
			log.Printf("⚠️ Failed to start reconciler: %v", err)
		}
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Gaming Glossary",
		DisableStartupMessage: false,
		ErrorHandler:          customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: cfg.Server.AllowedOrigins != "*",
	}))

	api.SetupRoutes(app, api.Handlers{
		Sessions: sessions,
		Terms:    handlers.NewTermHandler(termService, gameService),
		Votes:    handlers.NewVoteHandler(voteService),
		Games:    handlers.NewGameHandler(gameService),
		Accounts: handlers.NewAccountHandler(accountService, sessions),
		Pages:    handlers.NewPageHandler(store, kv, workerPool, hub.GetClientCount),
		Hub:      hub,
	})

	// Graceful shutdown with worker pool flushing
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("\n🛑 Shutting down server...")

		// First, stop the reconciler
		if reconciler != nil {
			reconciler.Stop()
		}

		// Second, stop accepting new HTTP requests
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		// Third, flush pending vote events
		log.Println("🔄 Flushing worker pool (pending vote events)...")
		if err := workerPool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}
		cancel()

		// Finally, close connections
		closeBackend("store", store)
		closeBackend("redis", kv)

		log.Println("✓ Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Printf("🚀 Server starting on port %d...", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initBackends connects the configured store and key-value backends. The
// memory driver keeps everything in process and needs neither Postgres nor Redis.
func initBackends(cfg *config.Config) (documentStore, keyValue, error) {
	if cfg.Store.Driver == "memory" {
		log.Println("⚠️ Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), repository.NewMemoryKV(), nil
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	postgresRepo := repository.NewPostgresRepository(db)
	if err := postgresRepo.AutoMigrate(); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("✓ Database migrations completed")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("✓ Connected to Redis")

	return postgresRepo, repository.NewRedisRepository(redisClient), nil
}

func closeBackend(name string, backend interface{}) {
	closer, ok := backend.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Printf("Error closing %s: %v", name, err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Votes hold a row lock for the length of one short transaction, so the
	// pool only needs to cover request concurrency plus the event workers
	maxOpen := cfg.Worker.Count + 20
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	log.Printf("✓ PostgreSQL connection pool configured: MaxOpen=%d, MaxIdle=%d", maxOpen, 10)

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Something went wrong. The problem has been logged."
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: message,
	})
}
