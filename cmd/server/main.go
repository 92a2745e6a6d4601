package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sboagy/tunetrees-go/internal/api"
	"github.com/sboagy/tunetrees-go/internal/cache"
	"github.com/sboagy/tunetrees-go/internal/config"
	"github.com/sboagy/tunetrees-go/internal/feedback"
	"github.com/sboagy/tunetrees-go/internal/metrics"
	"github.com/sboagy/tunetrees-go/internal/middleware"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/queue"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/router"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("starting tunetrees scheduling server")
	log.Printf("environment: %s", cfg.Environment)
	log.Printf("port: %d", cfg.Port)

	db, err := storage.NewSQLiteStore(storage.Config{DatabasePath: cfg.DatabaseURL})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Initialize(ctx, storage.CreateDefaultMigrations()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Printf("database migrations completed")

	weightsStore, err := config.LoadWeightsPreset(cfg.FSRSWeightsPath)
	if err != nil {
		log.Fatalf("failed to load FSRS weights preset: %v", err)
	}
	defer weightsStore.Close()

	policyStore, err := config.LoadSchedulingPolicy(cfg.SchedulingPolicyPath)
	if err != nil {
		log.Fatalf("failed to load scheduling policy: %v", err)
	}
	defer policyStore.Close()

	repos := repository.NewManager(db)
	prefsStore := prefs.New(repos.Prefs(), cache.New())
	defer prefsStore.Close()

	queueStore := queue.NewStore(db, repos.Tunes(), prefsStore)
	feedbackPipeline := feedback.NewPipeline(repos.Tunes(), repos.Staging(), prefsStore)
	writerLock := queue.NewWriterLock()

	httpMetrics := metrics.NewHTTPMetricsRegistry()
	businessMetrics := metrics.NewBusinessMetricsRegistry()

	queueOpLimiter := middleware.NewQueueOpLimiter(30, time.Minute)
	defer queueOpLimiter.Close()

	handlers := api.NewHandlers(repos, queueStore, feedbackPipeline, prefsStore, writerLock, businessMetrics)

	r := router.Setup(cfg, router.Deps{
		Handlers:        handlers,
		HTTPMetrics:     httpMetrics,
		BusinessMetrics: businessMetrics,
		QueueOpLimiter:  queueOpLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on http://localhost:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server stopped")
}
