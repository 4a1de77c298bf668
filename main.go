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

	"github.com/confdesk/confdesk/internal/api"
	"github.com/confdesk/confdesk/internal/config"
	"github.com/confdesk/confdesk/internal/database"
	"github.com/confdesk/confdesk/internal/logger"
	"github.com/confdesk/confdesk/internal/monitoring"
	"github.com/confdesk/confdesk/internal/services"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/confdesk/confdesk/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.AppEnv)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	if err := database.Seed(db); err != nil {
		log.Fatalf("Failed to seed default user: %v", err)
	}

	// Set up services
	conferenceService := services.NewConferenceService(db)
	userService := services.NewUserService(db)
	sessions := session.NewManager(db, cfg.SessionLifetime, cfg.AppEnv == "production")

	// Set up and run the background session sweeper
	sweeper := monitoring.NewSessionSweeper(sessions)
	go sweeper.Run()

	// Set up the page renderer
	renderer, err := web.New()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// Set up router
	router := api.NewRouter(conferenceService, userService, sessions, renderer, cfg.MinParticipants)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %d\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
