package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbfs "github.com/garnizeh/jobvacancy/db"
	"github.com/garnizeh/jobvacancy/api"
	"github.com/garnizeh/jobvacancy/internal/config"
	"github.com/garnizeh/jobvacancy/internal/db"
	"github.com/garnizeh/jobvacancy/internal/jobs"
	"github.com/garnizeh/jobvacancy/internal/mail"
	"github.com/garnizeh/jobvacancy/internal/ratelimit"
	"github.com/garnizeh/jobvacancy/internal/repository/sqlite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting jobvacancy server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer database.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}

	renderer, err := mail.NewRenderer(cfg.Mail.BaseURL)
	if err != nil {
		log.Fatalf("Failed to load mail templates: %v", err)
	}

	var transport mail.Transport
	switch cfg.Mail.Provider {
	case "ses":
		transport, err = mail.NewSESTransport(ctx, cfg.Mail.Region, cfg.Mail.AccessKey, cfg.Mail.SecretKey)
		if err != nil {
			log.Fatalf("Failed to init SES: %v", err)
		}
	default:
		transport = mail.NewLogTransport(logger)
	}
	transport = mail.NewBreakerTransport(transport, cfg.Mail.CircuitFailureThreshold, cfg.Mail.CircuitReset, logger)

	pool := jobs.NewWorkerPool(jobs.NewRepository(database), mail.Handlers(renderer, transport, cfg.Mail.From), logger, cfg.Worker.Count)
	pool.Start(ctx)

	var limiter *ratelimit.Store
	var janitorDone <-chan struct{}
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.NewStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		janitorDone = limiter.StartJanitor(ctx, time.Minute)
	}

	notifier := mail.NewNotifier(pool, cfg.Worker.MaxAttempts, logger)
	repo := sqlite.New(database, logger).Repository()
	handler := api.SetupRoutes(cfg, version, buildTime, repo, notifier, limiter)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	pool.Stop()
	if janitorDone != nil {
		<-janitorDone
	}

	logger.Info("server exited")
}
