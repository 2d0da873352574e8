package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/zawomons/battle-server/internal/api"
	"github.com/zawomons/battle-server/internal/config"
	"github.com/zawomons/battle-server/internal/engine"
	"github.com/zawomons/battle-server/internal/repository/postgres"
	"github.com/zawomons/battle-server/internal/service"
	"github.com/zawomons/battle-server/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	repos := postgres.NewRepositories(db)
	txManager := postgres.NewTxManager(db)
	eng := engine.New(engine.NewRand(time.Now().UnixNano()))

	services := service.NewServices(repos, txManager, eng, cfg)

	hub := websocket.NewHub(services)
	go hub.Run()

	// Background sweep: close overdue pending invitations and tell both
	// parties. Expiry stays lazy on access; the sweep only covers rows
	// nobody touched again.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.InvitationSweepInterval),
		gocron.NewTask(func() {
			expired, err := services.Invitation.ExpireStale(context.Background())
			if err != nil {
				log.Printf("invitation sweep failed: %v", err)
				return
			}
			if len(expired) > 0 {
				log.Printf("invitation sweep closed %d invitation(s)", len(expired))
				hub.NotifyInvitationsExpired(expired)
			}
		}),
	)
	if err != nil {
		log.Fatalf("failed to schedule invitation sweep: %v", err)
	}
	scheduler.Start()

	router := api.NewRouter(services, hub)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

	if err := scheduler.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
