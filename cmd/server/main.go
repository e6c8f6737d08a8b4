package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/hero-arena/internal/api"
	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/dom/hero-arena/internal/repository/postgres"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/websocket"
	"github.com/dom/hero-arena/internal/workers"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)
	clock := clockwork.NewRealClock()
	registry := assetregistry.NewClient(cfg.InstanceID, cfg.RegistryTimeout)

	// Initialize services
	services := service.NewServices(repos, postgres.NewTransactor(db), registry, clock, cfg)

	// Initialize WebSocket hub
	hub := websocket.NewHub(func(ctx context.Context, playerID string) (interface{}, error) {
		return services.Arena.Bullpen(ctx, playerID)
	})
	go hub.Run()
	services.Engine.SetNotifier(hub)

	created, err := services.Arena.Genesis(context.Background())
	if err != nil {
		log.Fatalf("failed to initialize arena: %v", err)
	}
	if created {
		log.Printf("Arena %s created with admin %s", cfg.InstanceID, cfg.AdminID)
	}

	scheduler, err := newScheduler(cfg, repos, registry, services, clock)
	if err != nil {
		log.Fatalf("failed to schedule jobs: %v", err)
	}
	scheduler.Start()
	log.Printf("Scheduled jobs: %v", scheduler.JobNames())

	// Initialize router
	router := api.NewRouter(services, hub)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	hub.Stop()

	log.Println("Server stopped")
}

// newScheduler registers the outbox dispatcher and whichever optional jobs the
// config enables.
func newScheduler(cfg *config.Config, repos *repository.Repositories, registry *assetregistry.Client, services *service.Services, clock clockwork.Clock) (*workers.Scheduler, error) {
	scheduler, err := workers.NewScheduler(clock)
	if err != nil {
		return nil, err
	}

	dispatcher := workers.NewDispatcher(repos.Outbox, registry, workers.NewPeerClient(cfg.RegistryTimeout), clock, cfg.OutboxBatchSize)
	if err := scheduler.AddOutbox(dispatcher, cfg.OutboxInterval); err != nil {
		return nil, err
	}

	if cfg.SessionSweepInterval > 0 {
		if err := scheduler.AddSessionSweep(cfg.SessionSweepInterval, services.Auth.SweepSessions); err != nil {
			return nil, err
		}
	}

	if cfg.TournamentResetCron != "" {
		if err := scheduler.AddTournamentReset(cfg.TournamentResetCron, services.Admin.ScheduledTournamentReset); err != nil {
			return nil, err
		}
	}

	if cfg.SnapshotsEnabled() {
		store, err := workers.NewS3Client(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		archiver := workers.NewArchiver(store, services.Arena, clock, cfg.SnapshotBucket, cfg.SnapshotPrefix)
		if err := scheduler.AddSnapshots(cfg.SnapshotCron, archiver); err != nil {
			return nil, err
		}
	}

	return scheduler, nil
}
